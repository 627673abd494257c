package handler

import (
	"net/http"

	"github.com/deppfellow/endpoint-bridge/internal/lib/job"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/deppfellow/endpoint-bridge/internal/service"
	"github.com/deppfellow/endpoint-bridge/internal/validation"
	"github.com/labstack/echo/v4"
)

// AdminHandler exposes registry maintenance to operators.
type AdminHandler struct {
	Handler
	services *service.Services
	table    *routing.RoutingTable
}

func NewAdminHandler(s *server.Server, services *service.Services, table *routing.RoutingTable) *AdminHandler {
	return &AdminHandler{
		Handler:  NewHandler(s),
		services: services,
		table:    table,
	}
}

type ResetEndpointsRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

func (r *ResetEndpointsRequest) Validate() error {
	return validation.Struct(r)
}

type ResetEndpointsResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// ResetEndpoints queues a full registry reset.
func (h *AdminHandler) ResetEndpoints(c echo.Context, req *ResetEndpointsRequest) (*ResetEndpointsResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = "admin request"
	}

	info, err := h.services.Endpoint.RequestReset(c.Request().Context(), job.EndpointResetPayload{
		Reason:      reason,
		RequestedBy: c.RealIP(),
		RequestID:   middleware.GetRequestID(c),
	})
	if err != nil {
		return nil, err
	}

	return &ResetEndpointsResponse{TaskID: info.ID, Queue: info.Queue}, nil
}

type ClearRoutesRequest struct{}

func (r *ClearRoutesRequest) Validate() error { return nil }

// ClearRoutes drops this instance's routing table without touching the registry.
func (h *AdminHandler) ClearRoutes(c echo.Context, _ *ClearRoutesRequest) error {
	h.table.Clear()
	h.server.Metrics.RoutingReset("local")
	return nil
}

type RouteResponse struct {
	Pattern  string   `json:"pattern"`
	Endpoint string   `json:"endpoint"`
	Methods  []string `json:"methods"`
	Auth     string   `json:"auth"`
}

// ListRoutes shows the routes this instance currently serves.
func (h *AdminHandler) ListRoutes(c echo.Context) error {
	routes := h.table.Routes()

	res := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		res = append(res, RouteResponse{
			Pattern:  r.Pattern,
			Endpoint: r.Endpoint.Name,
			Methods:  r.Endpoint.Methods(),
			Auth:     string(r.Endpoint.Auth),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"version": h.table.LastVersion(),
		"routes":  res,
	})
}
