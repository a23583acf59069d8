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

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type orderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	SizeID    int64 `json:"size_id" validate:"gte=0"`
	ColorID   int64 `json:"color_id" validate:"gte=0"`
	Quantity  int64 `json:"quantity" validate:"min=1"`
}

type shippingAddressRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Zip     string `json:"zip" validate:"required,max=20"`
	Phone   string `json:"phone" validate:"required,max=30"`
	Country string `json:"country" validate:"max=100"`
}

// itemsかfrom_cartのどちらか。住所はaddress_idかshipping_address
type OrderCreateRequest struct {
	Items           []orderLineRequest      `json:"items" validate:"dive"`
	FromCart        bool                    `json:"from_cart"`
	AddressID       int64                   `json:"address_id" validate:"gte=0"`
	ShippingAddress *shippingAddressRequest `json:"shipping_address" validate:"omitempty"`
	PaymentMethod   string                  `json:"payment_method"`
}

func (r OrderCreateRequest) toInput() usecase.PlaceOrderInput {
	in := usecase.PlaceOrderInput{
		FromCart:      r.FromCart,
		AddressID:     r.AddressID,
		PaymentMethod: r.PaymentMethod,
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, usecase.OrderLineInput{
			ProductID: it.ProductID,
			SizeID:    it.SizeID,
			ColorID:   it.ColorID,
			Quantity:  it.Quantity,
		})
	}
	if a := r.ShippingAddress; a != nil {
		in.ShippingAddress = &usecase.ShippingAddressInput{
			Name:    a.Name,
			Street:  a.Street,
			City:    a.City,
			State:   a.State,
			Zip:     a.Zip,
			Phone:   a.Phone,
			Country: a.Country,
		}
	}
	return in
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireRoles(model.RoleCustomer))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return response.Created(c, "order placed", out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, err := parseListOrders(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "orders fetched", out)
}

// 他人の注文は404
func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMyOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "order fetched", out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.CancelMyOrder(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "order cancelled", out)
}
