package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/infra/cache"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/repository"
	"marketplace/internal/server"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/redis/go-redis/v9"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// 商品参照とキャッシュ無効化をまとめたもの
type productCache interface {
	repository.ProductReader
	usecase.ProductCache
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	taxonRepo := infraRepo.NewTaxonGormRepository(gormDB)
	wishlistRepo := infraRepo.NewWishlistGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//商品参照キャッシュ（REDIS_ADDRが空ならDB直読み）
	var products productCache = cache.NewPassthroughProductCache(productRepo)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, product cache degraded", "addr", cfg.RedisAddr, "err", err)
		}
		products = cache.NewRedisProductCache(rdb, productRepo, cfg.ProductCacheTTL)
	}

	clock := &realClock{}

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, products)
	authUC := usecase.NewAuthUsecase(usecase.AuthSettings{
		JWTSecret:       cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		BcryptCost:      cfg.BcryptCost,
	}, userRepo, rtRepo, validator.NewAuthValidator(userRepo), cartUC, clock)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, addressRepo, usecase.FlatRatePolicy{
		ShippingFee:           cfg.ShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		TaxRate:               cfg.TaxRate,
	}, clock, usecase.OrderSettings{
		MaxAttempts:    cfg.OrderNumberRetries,
		Location:       cfg.OrderNumberLocation,
		DefaultCountry: cfg.DefaultCountry,
	})
	manageOrderUC := usecase.NewManageOrderUsecase(txm, orderRepo, orderItemRepo)
	productUC := usecase.NewProductUsecase(productRepo, products, products, taxonRepo, inventoryRepo, auditRepo)
	taxonUC := usecase.NewTaxonUsecase(taxonRepo)
	wishlistUC := usecase.NewWishlistUsecase(wishlistRepo, products)
	addressUC := usecase.NewAddressUsecase(txm, addressRepo, cfg.DefaultCountry)
	adminUC := usecase.NewAdminUserUsecase(userRepo, auditRepo)

	//Handler生成
	e := server.New(cfg, logger)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Auth:          handler.NewAuthHandler(authUC, cfg.RefreshTokenTTL, cfg.CookieSecure),
		Taxon:         handler.NewTaxonHandler(taxonUC),
		Product:       handler.NewProductHandler(productUC),
		ManageProduct: handler.NewManageProductHandler(productUC),
		Cart:          handler.NewCartHandler(cartUC),
		Wishlist:      handler.NewWishlistHandler(wishlistUC),
		Address:       handler.NewAddressHandler(addressUC),
		Order:         handler.NewOrderHandler(orderUC),
		ManageOrder:   handler.NewManageOrderHandler(manageOrderUC),
		Admin:         handler.NewAdminHandler(adminUC, authUC),
	})

	addr := ":" + cfg.Port
	logger.Info("server starting", "addr", addr, "env", cfg.GoEnv)
	return server.Start(ctx, e, addr)
}
