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

// 管理者（全注文）と出品者（自分の商品を含む注文）
type ManageOrderHandler struct {
	uc *usecase.ManageOrderUsecase
}

func NewManageOrderHandler(uc *usecase.ManageOrderUsecase) *ManageOrderHandler {
	return &ManageOrderHandler{uc: uc}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *ManageOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/manage/orders")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireRoles(model.RoleAdmin, model.RoleSeller))
	g.Use(middleware.ApprovedSellerGuard(userRepo))

	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PATCH("/:id/status", h.updateStatus)
}

func (h *ManageOrderHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, err := parseListOrders(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	customerID, err := queryInt64Ptr(c, "customer_id")
	if err != nil {
		return badRequest(c, "invalid customer_id")
	}

	out, err := h.uc.List(c.Request().Context(), actor, in, customerID)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "orders fetched", out)
}

func (h *ManageOrderHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "order fetched", out)
}

func (h *ManageOrderHandler) updateStatus(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req updateOrderStatusRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "order status updated", out)
}
