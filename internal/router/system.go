package router

import (
	"net/http"

	"github.com/deppfellow/endpoint-bridge/internal/handler"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/docs/openapi.json", h.OpenAPI.ServeOpenAPISpec)

	if s.Metrics != nil {
		r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}
}

// registerAdminRoutes mounts the admin API. Without an admin token it stays unmounted.
func registerAdminRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers, mw *middleware.Middlewares) {
	if s.Config.Endpoint.AdminToken == "" {
		s.Logger.Info().Msg("admin token not configured, admin routes disabled")
		return
	}

	admin := r.Group("/admin/endpoints", mw.Auth.RequireAdminToken)
	admin.GET("/routes", h.Admin.ListRoutes)
	admin.POST("/reset", handler.Handle(h.Admin.Handler, h.Admin.ResetEndpoints, http.StatusAccepted, &handler.ResetEndpointsRequest{}))
	admin.POST("/clear", handler.HandleNoContent(h.Admin.Handler, h.Admin.ClearRoutes, http.StatusNoContent, &handler.ClearRoutesRequest{}))
}
