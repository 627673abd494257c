package handler

import (
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/deppfellow/endpoint-bridge/internal/service"
)

// Handlers groups the HTTP handlers of the outer router. Endpoint handlers
// are built separately because the routing table needs them first.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Admin   *AdminHandler
}

func NewHandlers(s *server.Server, services *service.Services, table *routing.RoutingTable) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s, table, services.Auth),
		OpenAPI: NewOpenAPIHandler(s, table),
		Admin:   NewAdminHandler(s, services, table),
	}
}
