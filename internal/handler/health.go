package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/deppfellow/endpoint-bridge/internal/service"
	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the service and its dependencies are reachable.
type HealthHandler struct {
	Handler
	table *routing.RoutingTable
	auth  *service.AuthService
}

func NewHealthHandler(s *server.Server, table *routing.RoutingTable, auth *service.AuthService) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		table:   table,
		auth:    auth,
	}
}

// CheckHealth answers 200 when the database is reachable and 503 otherwise.
// Redis is reported but optional: without it routing falls back to polling.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().Str("operation", "health_check").Logger()

	checks := map[string]any{}
	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}
	isHealthy := true

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.server.DB != nil {
		dbStart := time.Now()
		if err := h.server.DB.Pool.Ping(ctx); err != nil {
			isHealthy = false
			checks["database"] = unhealthy(dbStart, err)
			logger.Error().Err(err).Dur("response_time", time.Since(dbStart)).Msg("database health check failed")
			h.recordFailure("database", dbStart, err)
		} else {
			checks["database"] = healthy(dbStart)
		}
	}

	if h.server.Redis != nil {
		redisStart := time.Now()
		if err := h.server.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = unhealthy(redisStart, err)
			logger.Warn().Err(err).Dur("response_time", time.Since(redisStart)).Msg("redis health check failed")
			h.recordFailure("redis", redisStart, err)
		} else {
			checks["redis"] = healthy(redisStart)
		}
	}

	if h.table != nil {
		checks["routing"] = map[string]any{
			"status":           "healthy",
			"registry_version": h.table.LastVersion(),
			"routes":           len(h.table.Routes()),
		}
	}

	if h.auth != nil {
		checks["auth"] = h.auth.Status()
	}

	status := http.StatusOK
	if !isHealthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
	}

	if err := c.JSON(status, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

func healthy(start time.Time) map[string]any {
	return map[string]any{
		"status":        "healthy",
		"response_time": time.Since(start).String(),
	}
}

func unhealthy(start time.Time, err error) map[string]any {
	return map[string]any{
		"status":        "unhealthy",
		"response_time": time.Since(start).String(),
		"error":         err.Error(),
	}
}

func (h *HealthHandler) recordFailure(check string, start time.Time, err error) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type":       check,
		"operation":        "health_check",
		"error_type":       check + "_unhealthy",
		"response_time_ms": time.Since(start).Milliseconds(),
		"error_message":    err.Error(),
	})
}
