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

// /cartのHTTP。ゲストはセッション、ログイン済みはユーザーのカート
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	SizeID    int64 `json:"size_id" validate:"gte=0"`
	ColorID   int64 `json:"color_id" validate:"gte=0"`
	Quantity  int64 `json:"quantity" validate:"min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity" validate:"min=1"`
}

// /cart, /cart/items/{id} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuth(cfg.JWTSecret))
	g.Use(middleware.WhenAuthenticated(middleware.TokenVersionGuard(userRepo)))
	g.Use(middleware.WhenAuthenticated(middleware.RequireRoles(model.RoleCustomer)))
	g.Use(middleware.GuestSession(cfg.CookieSecure))

	g.GET("", h.getCart)
	g.DELETE("", h.clear)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	owner, ok := cartOwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "cart fetched", out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	owner, ok := cartOwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddItem(c.Request().Context(), owner, usecase.AddCartItemInput{
		ProductID: req.ProductID,
		SizeID:    req.SizeID,
		ColorID:   req.ColorID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.Created(c, "item added to cart", out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	owner, ok := cartOwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req UpdateCartItemRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), owner, itemID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "cart item updated", out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	owner, ok := cartOwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), owner, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "cart item removed", out)
}

func (h *CartHandler) clear(c echo.Context) error {
	owner, ok := cartOwnerFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ClearCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "cart cleared", out)
}
