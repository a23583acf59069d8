package handler

import (
	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 出品者（自分の商品）と管理者の商品管理
type ManageProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewManageProductHandler(uc *usecase.ProductUsecase) *ManageProductHandler {
	return &ManageProductHandler{uc: uc}
}

type productRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       int64   `json:"price" validate:"gte=0"`
	Stock       int64   `json:"stock" validate:"gte=0"`
	IsActive    bool    `json:"is_active"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	BrandID     *int64  `json:"brand_id" validate:"omitempty,gt=0"`
	MaterialID  *int64  `json:"material_id" validate:"omitempty,gt=0"`
	SizeIDs     []int64 `json:"size_ids" validate:"dive,gt=0"`
	ColorIDs    []int64 `json:"color_ids" validate:"dive,gt=0"`
	TagIDs      []int64 `json:"tag_ids" validate:"dive,gt=0"`
}

func (r productRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
		CategoryID:  r.CategoryID,
		BrandID:     r.BrandID,
		MaterialID:  r.MaterialID,
		SizeIDs:     r.SizeIDs,
		ColorIDs:    r.ColorIDs,
		TagIDs:      r.TagIDs,
	}
}

type updateStockRequest struct {
	Stock  int64  `json:"stock" validate:"gte=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

func (h *ManageProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/manage/products")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireRoles(model.RoleAdmin, model.RoleSeller))
	g.Use(middleware.ApprovedSellerGuard(userRepo))

	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:id/inventory", h.updateStock)
}

func (h *ManageProductHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, msg := parseListProducts(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListManagedProducts(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "products fetched", out)
}

func (h *ManageProductHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req productRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateProduct(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return response.Created(c, "product created", out)
}

func (h *ManageProductHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req productRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateProduct(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "product updated", out)
}

func (h *ManageProductHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "product deleted", nil)
}

func (h *ManageProductHandler) updateStock(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req updateStockRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.UpdateInventory(c.Request().Context(), actor, id, req.Stock, req.Reason); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "stock updated", nil)
}
