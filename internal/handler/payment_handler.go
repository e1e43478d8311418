package handler

import (
	"net/http"

	"storefront-service/internal/checkout"
	"storefront-service/internal/payment"
	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PaymentConfig tells the client which providers are live.
func (h *Handler) PaymentConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"providers":            h.providers,
		"currency":             h.cfg.Payment.Currency,
		"stripePublishableKey": h.cfg.Stripe.PublishableKey,
		"paypalClientId":       h.cfg.PayPal.ClientID,
	})
}

func (h *Handler) prepare(c echo.Context, provider string) error {
	var req checkout.PrepareRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	result, err := h.checkout.Prepare(c.Request().Context(), currentUser(c), provider, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) complete(c echo.Context, provider string) error {
	var req checkout.CompleteRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	if req.Locale == "" {
		req.Locale = locale(c)
	}
	result, err := h.checkout.Complete(c.Request().Context(), currentUser(c), provider, req)
	if err != nil {
		return h.respondError(c, err)
	}

	// stock may have changed
	h.invalidateCatalog(c)
	logger.FromContext(c).Info("Checkout completed",
		zap.String("provider", provider),
		zap.String("order_number", result.OrderNumber))
	return c.JSON(http.StatusOK, result)
}

// CreateStripeIntent prices the cart and opens a PaymentIntent.
func (h *Handler) CreateStripeIntent(c echo.Context) error {
	return h.prepare(c, payment.ProviderStripe)
}

// ConfirmStripe turns a succeeded PaymentIntent into an order.
func (h *Handler) ConfirmStripe(c echo.Context) error {
	return h.complete(c, payment.ProviderStripe)
}

// CreatePayPalOrder prices the cart and opens a PayPal order.
func (h *Handler) CreatePayPalOrder(c echo.Context) error {
	return h.prepare(c, payment.ProviderPayPal)
}

// CapturePayPalOrder captures an approved PayPal order and records it.
func (h *Handler) CapturePayPalOrder(c echo.Context) error {
	return h.complete(c, payment.ProviderPayPal)
}
