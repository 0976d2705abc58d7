package handler

import (
	"net/http"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/database"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/metrics"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthCheck reports whether the service and its database are reachable
func HealthCheck(c echo.Context) error {
	status, code := "healthy", http.StatusOK
	if err := database.Ping(c.Request().Context()); err != nil {
		logger.FromEcho(c).Warn("Database ping failed", zap.Error(err))
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status":  status,
		"service": opts.ServiceName,
	})
}

// MetricsHandler exposes the Prometheus registry
func MetricsHandler(c echo.Context) error {
	metrics.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
