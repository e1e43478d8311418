package prometheus

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "storefront-service"

// Counter metrics
var (
	// Checkout attempts by provider and outcome
	CheckoutCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_total",
			Help: "Total number of checkout attempts",
		},
		[]string{"provider", "result"}, // result can be "prepared", "completed", "refunded", "failed"
	)

	// Discount code operations
	DiscountOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_discount_operations_total",
			Help: "Total number of discount code operations",
		},
		[]string{"operation", "result"}, // operation can be "validate", "apply"
	)

	StockErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_stock_errors_total",
			Help: "Total number of order lines rejected for insufficient stock",
		},
	)

	OrderStatusTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Total number of order status transitions",
		},
		[]string{"to"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "db_error" etc.
	)

	EmailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_emails_total",
			Help: "Total number of emails sent",
		},
		[]string{"template", "result"},
	)

	RateLimitedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	CacheLookupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Responses by status category (2xx, 4xx, 5xx)
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_status_category_total",
			Help: "Total number of responses by status category",
		},
		[]string{"service", "category"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete", "checkout"
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_info",
			Help: "Information about the storefront service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(CheckoutCounter)
	prometheus.MustRegister(DiscountOperationCounter)
	prometheus.MustRegister(StockErrorCounter)
	prometheus.MustRegister(OrderStatusTransitionCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(EmailCounter)
	prometheus.MustRegister(RateLimitedCounter)
	prometheus.MustRegister(CacheLookupCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(endTime.Sub(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			code := c.Response().Status
			var he *echo.HTTPError
			if err != nil && !c.Response().Committed {
				code = http.StatusInternalServerError
				if errors.As(err, &he) {
					code = he.Code
				}
			}

			status := strconv.Itoa(code)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(time.Since(start).Seconds())

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			if category := statusCategory(code); category != "" {
				StatusCategoryCounter.WithLabelValues(serviceName, category).Inc()
			}

			return err
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// RecordCheckout records a checkout step outcome for a provider
func RecordCheckout(provider, result string) {
	CheckoutCounter.With(prometheus.Labels{"provider": provider, "result": result}).Inc()
}

// RecordDiscountOperation records a discount validate/apply outcome
func RecordDiscountOperation(operation, result string) {
	DiscountOperationCounter.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
}

// RecordStockErrors adds the number of rejected order lines
func RecordStockErrors(n int) {
	StockErrorCounter.Add(float64(n))
}

// RecordStatusTransition records an order moving to a new status
func RecordStatusTransition(to string) {
	OrderStatusTransitionCounter.With(prometheus.Labels{"to": to}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordEmail records a send attempt for a mail template
func RecordEmail(template string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailCounter.With(prometheus.Labels{"template": template, "result": result}).Inc()
}

// RecordRateLimited records a request denied by the limiter
func RecordRateLimited(scope string) {
	RateLimitedCounter.With(prometheus.Labels{"scope": scope}).Inc()
}

// RecordCacheLookup records a response cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupCounter.With(prometheus.Labels{"result": result}).Inc()
}
