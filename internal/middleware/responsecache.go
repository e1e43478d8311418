package middleware

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"storefront-service/pkg/cache"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ResponseCachePrefix namespaces cached response bodies in the store.
const ResponseCachePrefix = "resp:"

// ResponseCache serves repeated GET requests from the store. Only 200 responses are kept.
func ResponseCache(store cache.Store, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}

			log := logger.FromContext(c)
			key := ResponseCachePrefix + req.URL.RequestURI()

			body, ok, err := store.Get(req.Context(), key)
			if err != nil {
				log.Warn("Response cache lookup failed", zap.String("key", key), zap.Error(err))
			}
			prometheus.RecordCacheLookup(ok)
			if ok {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
			}

			buf := new(bytes.Buffer)
			writer := &captureWriter{ResponseWriter: c.Response().Writer, body: buf}
			c.Response().Writer = writer
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if c.Response().Status == http.StatusOK {
				if err := store.Set(req.Context(), key, buf.Bytes(), ttl); err != nil {
					log.Warn("Response cache store failed", zap.String("key", key), zap.Error(err))
				}
			}
			return nil
		}
	}
}

// InvalidateResponses drops cached responses whose request URI starts with pathPrefix.
func InvalidateResponses(ctx context.Context, store cache.Store, pathPrefixes ...string) {
	for _, p := range pathPrefixes {
		if err := store.DeletePrefix(ctx, ResponseCachePrefix+p); err != nil {
			logger.GetLogger().Warn("Response cache invalidation failed", zap.String("prefix", p), zap.Error(err))
		}
	}
}

type captureWriter struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}
