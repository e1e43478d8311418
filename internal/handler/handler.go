// Package handler exposes the storefront services over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-service/internal/account"
	"storefront-service/internal/apperror"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/contact"
	"storefront-service/internal/discount"
	"storefront-service/internal/middleware"
	"storefront-service/internal/newsletter"
	"storefront-service/internal/orders"
	"storefront-service/internal/reviews"
	"storefront-service/internal/users"
	"storefront-service/internal/wishlist"
	"storefront-service/pkg/cache"
	"storefront-service/pkg/config"
	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	cfg        *config.Config
	db         *gorm.DB
	cache      cache.Store
	auth       *middleware.Auth
	accounts   *account.Service
	catalog    *catalog.Service
	carts      *cart.Service
	wishlists  *wishlist.Service
	discounts  *discount.Service
	checkout   *checkout.Service
	orders     *orders.Service
	newsletter *newsletter.Service
	reviews    *reviews.Service
	contact    *contact.Service
	users      *users.Service
	providers  []string
}

// Deps wires a Handler.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Cache      cache.Store
	Auth       *middleware.Auth
	Accounts   *account.Service
	Catalog    *catalog.Service
	Carts      *cart.Service
	Wishlists  *wishlist.Service
	Discounts  *discount.Service
	Checkout   *checkout.Service
	Orders     *orders.Service
	Newsletter *newsletter.Service
	Reviews    *reviews.Service
	Contact    *contact.Service
	Users      *users.Service
	// Providers lists the configured payment provider names.
	Providers []string
}

func New(d Deps) *Handler {
	return &Handler{
		cfg:        d.Config,
		db:         d.DB,
		cache:      d.Cache,
		auth:       d.Auth,
		accounts:   d.Accounts,
		catalog:    d.Catalog,
		carts:      d.Carts,
		wishlists:  d.Wishlists,
		discounts:  d.Discounts,
		checkout:   d.Checkout,
		orders:     d.Orders,
		newsletter: d.Newsletter,
		reviews:    d.Reviews,
		contact:    d.Contact,
		users:      d.Users,
		providers:  d.Providers,
	}
}

// respondError writes err as {error, message, stockErrors?}. Internal details are hidden in production.
func (h *Handler) respondError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(apperror.Internal, "internal server error", err)
	}
	status := apperror.StatusOf(appErr)

	body := echo.Map{
		"error":   string(appErr.Kind),
		"message": appErr.Message,
	}
	if len(appErr.StockErrors) > 0 {
		body["stockErrors"] = appErr.StockErrors
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		if h.cfg.Server.IsProduction() {
			body["message"] = "internal server error"
		} else {
			body["message"] = err.Error()
		}
	} else {
		log.Info("Request rejected",
			zap.String("path", c.Path()),
			zap.String("kind", string(appErr.Kind)),
			zap.String("message", appErr.Message))
	}
	return c.JSON(status, body)
}

// bind decodes and validates the request body into req.
func (h *Handler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Wrap(apperror.Validation, "invalid request", err)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Newf(apperror.Validation, "invalid %s", name)
	}
	return uint(id), nil
}

func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}

// currentUser returns the authenticated user id. Routes using it sit behind RequireAuth.
func currentUser(c echo.Context) uint {
	id, _ := middleware.UserID(c)
	return id
}

// locale picks the response language from ?locale or Accept-Language.
func locale(c echo.Context) string {
	if l := c.QueryParam("locale"); l == "en" || l == "bg" {
		return l
	}
	if al := c.Request().Header.Get("Accept-Language"); len(al) >= 2 && al[:2] == "en" {
		return "en"
	}
	return "bg"
}
