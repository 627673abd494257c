package router

import (
	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/handler"
	"github.com/deppfellow/endpoint-bridge/internal/middleware"
	"github.com/deppfellow/endpoint-bridge/internal/routing"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// EndpointBuilder mounts registry routes on a fresh Echo instance: each
// route answers the methods of its endpoint's allow-list, behind the
// endpoint's auth method and a request transaction.
func EndpointBuilder(mw *middleware.Middlewares, handlers *handler.EndpointHandlers, logger *zerolog.Logger) routing.BuildFunc {
	limit := mw.RateLimit.Limit()

	return func(routes []routing.Route) *echo.Echo {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true

		for _, r := range routes {
			ep := r.Endpoint

			h, ok := handlers.Lookup(ep.Handler)
			if !ok {
				logger.Warn().
					Str("endpoint", ep.Name).
					Str("handler", ep.Handler).
					Str("pattern", r.Pattern).
					Msg("endpoint routes to unknown handler")
				h = handlers.Missing(ep.Handler)
			}

			methods := ep.Methods()
			if len(methods) == 0 {
				continue
			}

			e.Match(methods, r.Pattern, h,
				bindEndpoint(ep),
				mw.Tracing.TagEndpoint(ep.Name),
				limit,
				mw.Auth.For(ep.Auth),
				mw.Transaction.Begin,
			)
		}

		return e
	}
}

func bindEndpoint(ep *endpoint.Endpoint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(handler.EndpointKey, ep)
			return next(c)
		}
	}
}
