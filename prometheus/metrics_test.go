package prometheus

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewareRecordsHandlerErrors(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/sample/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/sample/forbidden", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "nope")
	})
	e.GET("/sample/broken", func(c echo.Context) error { return errors.New("boom") })

	for _, path := range []string{"/sample/ok", "/sample/forbidden", "/sample/broken"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/sample/ok", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/sample/forbidden", http.MethodGet, "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/sample/broken", http.MethodGet, "500")))
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(EmailCounter.WithLabelValues("welcome", "failed"))
	RecordEmail("welcome", errors.New("smtp down"))
	assert.Equal(t, before+1, testutil.ToFloat64(EmailCounter.WithLabelValues("welcome", "failed")))

	hits := testutil.ToFloat64(CacheLookupCounter.WithLabelValues("hit"))
	RecordCacheLookup(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookupCounter.WithLabelValues("hit")))

	assert.Equal(t, "2xx", statusCategory(204))
	assert.Equal(t, "4xx", statusCategory(429))
	assert.Equal(t, "", statusCategory(302))
}
