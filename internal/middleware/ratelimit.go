package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/pkg/cache"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Rate limit scopes.
const (
	ScopeAuth    = "auth"
	ScopeGeneral = "general"
	ScopeStrict  = "strict"
)

// RateLimitStore adapts cache.Store fixed-window counters to echo's limiter store.
type RateLimitStore struct {
	store  cache.Store
	scope  string
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewRateLimitStore(store cache.Store, scope string, limit int, window time.Duration) *RateLimitStore {
	return &RateLimitStore{store: store, scope: scope, limit: limit, window: window, log: logger.GetLogger()}
}

// Allow counts the request against the identifier's window. Counter failures let
// the request through.
func (s *RateLimitStore) Allow(identifier string) (bool, error) {
	n, err := s.store.Incr(context.Background(), "rl:"+s.scope+":"+identifier, s.window)
	if err != nil {
		s.log.Error("Rate limit counter unavailable", zap.String("scope", s.scope), zap.Error(err))
		return true, err
	}
	return n <= int64(s.limit), nil
}

// RateLimit limits each client IP to limit requests per window on every route it wraps.
func RateLimit(store cache.Store, scope string, limit int, window time.Duration) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: NewRateLimitStore(store, scope, limit, window),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP() + ":" + c.Path(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "cannot identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.FromContext(c).Warn("Rate limit exceeded",
				zap.String("scope", scope),
				zap.String("identifier", identifier))
			prometheus.RecordRateLimited(scope)
			c.Response().Header().Set("Retry-After", retryAfter(window))
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate_limited", "message": "too many requests, please try again later"})
		},
	})
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
