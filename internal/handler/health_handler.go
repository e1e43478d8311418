package handler

import (
	"context"
	"net/http"
	"time"

	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports liveness and database reachability.
func (h *Handler) HealthCheck(c echo.Context) error {
	status := http.StatusOK
	health, dbStatus := "healthy", "up"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status = http.StatusServiceUnavailable
		health, dbStatus = "degraded", "down"
	}

	return c.JSON(status, echo.Map{
		"status":   health,
		"service":  "storefront-service",
		"database": dbStatus,
	})
}

// MetricsHandler serves the Prometheus registry.
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
