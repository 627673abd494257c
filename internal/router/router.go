// Package router builds the Echo router: global middleware, system and admin
// routes, and the catch-all that hands every other request to the routing
// table of registry endpoints.
package router

import (
	"github.com/deppfellow/endpoint-bridge/internal/handler"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers, mw *middleware.Middlewares, table *routing.RoutingTable) *echo.Echo {
	r := echo.New()
	r.HideBanner = true
	r.HidePort = true

	r.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	r.Use(
		mw.Global.CORS(),
		mw.Global.Secure(),
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Global.RequestLogger(),
		mw.Global.Recover(),
	)

	registerSystemRoutes(r, s, h)
	registerAdminRoutes(r, s, h, mw)

	r.Any("/*", table.Dispatch)

	return r
}
