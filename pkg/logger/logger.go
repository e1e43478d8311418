package logger

import (
	"net/http"
	"time"

	"storefront-service/pkg/config"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// InitLogger initializes the global logger
func InitLogger(cfg *config.Config) {
	// Configure logger based on configured log level
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var logConfig zap.Config
	if cfg.Server.IsProduction() {
		// Production mode: structured JSON logs
		logConfig = zap.NewProductionConfig()
		logConfig.EncoderConfig.TimeKey = "timestamp"
		logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		// Development mode: colorful, human-readable logs
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	// Build logger with the service name on every entry
	var err error
	log, err = logConfig.Build(zap.Fields(zap.String("service", "storefront-service")))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Replace zap's global logger so zap.L() matches
	zap.ReplaceGlobals(log)
	log.Info("Logger initialized", zap.String("level", level.String()))
}

// SetLogger replaces the global logger, mainly for tests and tools.
func SetLogger(l *zap.Logger) {
	log = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		// Fallback when InitLogger has not run yet
		var err error
		log, err = zap.NewProduction()
		if err != nil {
			panic("Failed to create fallback logger: " + err.Error())
		}
	}
	return log
}

// Middleware stores a request-scoped logger on the context and writes one access
// line per request. Health and metrics hits log at debug level, 4xx at warn and 5xx or
// handler errors at error.
func Middleware(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID, _ := c.Get(RequestIDKey).(string)
			if requestID == "" {
				requestID = c.Request().Header.Get(RequestIDKey)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			c.Set(loggerKey, reqLogger)

			err := next(c)
			if err != nil {
				// let echo write the response so the logged status is the real one
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("user_agent", c.Request().UserAgent()),
			}
			if userID, ok := c.Get(userIDKey).(uint); ok {
				fields = append(fields, zap.Uint("user_id", userID))
			}

			switch {
			case err != nil || status >= http.StatusInternalServerError:
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				reqLogger.Error("Request failed", fields...)
			case status >= http.StatusBadRequest:
				reqLogger.Warn("Request rejected", fields...)
			case quietPaths[c.Path()]:
				reqLogger.Debug("Request served", fields...)
			default:
				reqLogger.Info("Request served", fields...)
			}
			return nil
		}
	}
}
