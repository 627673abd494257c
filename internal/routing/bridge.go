// Package routing splices endpoint registry rules into the HTTP router.
//
// The Bridge turns registry rules into routes, the RoutingTable keeps the
// routes it serves in step with the registry version, and the Invalidator
// spreads registry resets to every running instance over Redis.
package routing

import (
	"context"
	"fmt"

	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/rs/zerolog"
)

// Route is one URL pattern bound to an endpoint.
type Route struct {
	Pattern  string
	Endpoint *endpoint.Endpoint
}

// Bridge reads rules from a registry and produces routes for them.
type Bridge struct {
	registry    endpoint.Registry
	extraMethod string
	logger      *zerolog.Logger
}

// NewBridge creates a Bridge that guarantees extraMethod on every registry endpoint.
func NewBridge(registry endpoint.Registry, extraMethod string, logger *zerolog.Logger) *Bridge {
	return &Bridge{
		registry:    registry,
		extraMethod: extraMethod,
		logger:      logger,
	}
}

// GenerateRoutes returns base followed by one route per URL pattern of each
// registry rule, in registry order.
//
// Each registry endpoint gets the extra method appended to its allow-list if
// it is missing. Endpoints are shared with the registry, so the change
// sticks for every later pass; base routes are left untouched.
func (b *Bridge) GenerateRoutes(ctx context.Context, base []Route) ([]Route, error) {
	rules, err := b.registry.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoint rules: %w", err)
	}

	routes := make([]Route, 0, len(base)+len(rules))
	routes = append(routes, base...)

	for _, rule := range rules {
		if rule.Endpoint == nil {
			b.logger.Warn().Str("rule", rule.Key).Msg("skipping endpoint rule without endpoint")
			continue
		}

		b.logger.Debug().Stringer("rule", rule).Msg("loading endpoint rule")

		if rule.Endpoint.EnsureMethod(b.extraMethod) {
			b.logger.Debug().
				Str("rule", rule.Key).
				Str("method", b.extraMethod).
				Msg("added method to endpoint allow-list")
		}

		for _, pattern := range rule.Routes {
			routes = append(routes, Route{Pattern: pattern, Endpoint: rule.Endpoint})
		}
	}

	return routes, nil
}

// LastVersion returns the current registry version.
func (b *Bridge) LastVersion(ctx context.Context) (int64, error) {
	v, err := b.registry.LastVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read endpoint registry version: %w", err)
	}
	return v, nil
}
