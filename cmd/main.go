package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/internal/account"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/contact"
	"storefront-service/internal/discount"
	"storefront-service/internal/handler"
	"storefront-service/internal/inventory"
	mid "storefront-service/internal/middleware"
	"storefront-service/internal/newsletter"
	"storefront-service/internal/orders"
	"storefront-service/internal/payment"
	"storefront-service/internal/reviews"
	"storefront-service/internal/users"
	"storefront-service/internal/wishlist"
	"storefront-service/pkg/cache"
	"storefront-service/pkg/config"
	"storefront-service/pkg/database"
	"storefront-service/pkg/jwtutil"
	"storefront-service/pkg/logger"
	"storefront-service/pkg/mailer"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting storefront-service", appConfig.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(appConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	store, err := cache.New(&appConfig.Cache)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer store.Close()
	log.Info("Cache initialized", zap.String("backend", appConfig.Cache.Backend))

	providers, err := paymentProviders(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize payment providers", zap.Error(err))
	}
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	if len(names) == 0 {
		log.Warn("No payment provider configured, checkout is disabled")
	}

	jwt := jwtutil.NewJWTUtil(&appConfig.JWT)
	mail := mailer.New(&appConfig.Mail, log)
	publicURL := appConfig.Server.PublicURL
	discounts := discount.NewService(db)

	h := handler.New(handler.Deps{
		Config:     appConfig,
		DB:         db,
		Cache:      store,
		Auth:       mid.NewAuth(jwt, db),
		Accounts:   account.NewService(db, jwt, mail, publicURL),
		Catalog:    catalog.NewService(db),
		Carts:      cart.NewService(db),
		Wishlists:  wishlist.NewService(db),
		Discounts:  discounts,
		Checkout:   checkout.NewService(db, inventory.NewService(db), discounts, providers, mail, appConfig.Payment.Currency, publicURL),
		Orders:     orders.NewService(db, mail),
		Newsletter: newsletter.NewService(db, discounts, mail, publicURL),
		Reviews:    reviews.NewService(db),
		Contact:    contact.NewService(db),
		Users:      users.NewService(db),
		Providers:  names,
	})

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{publicURL},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, mid.CSRFHeaderName},
		AllowCredentials: true,
	}))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	h.Routes(e)

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

func paymentProviders(cfg *config.Config) (map[string]payment.Provider, error) {
	providers := map[string]payment.Provider{}
	if s := payment.NewStripe(&cfg.Stripe); s != nil {
		providers[payment.ProviderStripe] = s
	}
	p, err := payment.NewPayPal(&cfg.PayPal)
	if err != nil {
		return nil, err
	}
	if p != nil {
		providers[payment.ProviderPayPal] = p
	}
	return providers, nil
}
