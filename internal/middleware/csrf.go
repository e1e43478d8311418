package middleware

import (
	"net/http"

	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	CSRFCookieName = "csrf-token"
	CSRFHeaderName = "X-CSRF-Token"
	CSRFContextKey = "csrf"
)

// CSRF guards mutating requests with a double-submit cookie. Safe methods pass and
// receive the token cookie.
func CSRF(secure bool) echo.MiddlewareFunc {
	return echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeaderName,
		CookieName:     CSRFCookieName,
		ContextKey:     CSRFContextKey,
		CookiePath:     "/",
		CookieMaxAge:   86400,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
		ErrorHandler: func(err error, c echo.Context) error {
			logger.FromContext(c).Warn("CSRF check failed",
				zap.String("path", c.Path()),
				zap.Error(err))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "csrf_invalid", "message": "missing or invalid CSRF token"})
		},
	})
}

// CSRFToken returns the token issued for this request.
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(CSRFContextKey).(string)
	return token
}
