package server

import (
	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth          *handler.AuthHandler
	Taxon         *handler.TaxonHandler
	Product       *handler.ProductHandler
	ManageProduct *handler.ManageProductHandler
	Cart          *handler.CartHandler
	Wishlist      *handler.WishlistHandler
	Address       *handler.AddressHandler
	Order         *handler.OrderHandler
	ManageOrder   *handler.ManageOrderHandler
	Admin         *handler.AdminHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Taxon.RegisterRoutes(e, cfg, userRepo)
	h.Product.RegisterRoutes(e)
	h.ManageProduct.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Wishlist.RegisterRoutes(e, cfg, userRepo)
	h.Address.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.ManageOrder.RegisterRoutes(e, cfg, userRepo)
	h.Admin.RegisterRoutes(e, cfg, userRepo)
}
