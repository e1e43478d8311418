package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	RequestIDKey = "X-Request-ID"
	loggerKey    = "logger"
	// userIDKey matches the key the auth middleware stores the caller under.
	userIDKey = "user_id"
)

// quietPaths are health and metrics endpoints whose successful hits are logged at debug level.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// FromContext returns the request logger set by Middleware. Outside a request chain it
// falls back to the global logger tagged with whatever request id is known.
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return l
	}

	requestID, _ := c.Get(RequestIDKey).(string)
	if requestID == "" {
		requestID = c.Request().Header.Get(RequestIDKey)
	}
	if requestID == "" {
		return GetLogger()
	}
	return GetLogger().With(zap.String("request_id", requestID))
}
