package routing

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/lib/metrics"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// BuildFunc mounts routes on a fresh Echo instance.
type BuildFunc func(routes []Route) *echo.Echo

// RoutingTable serves the registry routes and rebuilds them when the
// registry version moves past the version they were built from.
type RoutingTable struct {
	bridge  *Bridge
	base    []Route
	build   BuildFunc
	logger  *zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	lastVersion int64
	stale       atomic.Bool
	routes      []Route
	active      atomic.Pointer[echo.Echo]
}

// NewRoutingTable creates an empty table; the first lookup or Refresh builds it.
func NewRoutingTable(bridge *Bridge, base []Route, build BuildFunc, logger *zerolog.Logger, m *metrics.Metrics) *RoutingTable {
	t := &RoutingTable{
		bridge:  bridge,
		base:    base,
		build:   build,
		logger:  logger,
		metrics: m,
	}
	t.stale.Store(true)
	return t
}

// LastVersion returns the registry version the active routes were built from.
func (t *RoutingTable) LastVersion() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastVersion
}

// Routes returns the active routes.
func (t *RoutingTable) Routes() []Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Route(nil), t.routes...)
}

// Refresh rebuilds the table when it is stale or the registry version
// advanced. It reports whether a rebuild happened.
func (t *RoutingTable) Refresh(ctx context.Context) (bool, error) {
	version, err := t.bridge.LastVersion(ctx)
	if err != nil {
		return false, errors.Wrap(err, "read registry version")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.stale.Load() && version <= t.lastVersion {
		return false, nil
	}

	if t.active.Load() != nil {
		t.logger.Info().
			Int64("from", t.lastVersion).
			Int64("to", version).
			Msg("endpoint registry updated, reset routing map")
	}

	routes, err := t.bridge.GenerateRoutes(ctx, t.base)
	if err != nil {
		return false, errors.Wrap(err, "generate routes")
	}

	inner := t.build(routes)
	inner.HTTPErrorHandler = captureError

	t.routes = routes
	t.lastVersion = version
	t.active.Store(inner)
	t.stale.Store(false)

	t.metrics.RoutingRebuilt(len(routes), version)
	t.logger.Debug().Int("routes", len(routes)).Int64("version", version).Msg("routing map built")

	return true, nil
}

// Clear handles a full registry reset: the last seen version drops to zero
// and the next lookup rebuilds the table.
func (t *RoutingTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastVersion = 0
	t.stale.Store(true)
}

// Watch polls the registry version every interval until ctx is done.
func (t *RoutingTable) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Refresh(ctx); err != nil {
				t.logger.Error().Err(err).Msg("failed to refresh routing map")
			}
		}
	}
}

type dispatchKey struct{}

type dispatchResult struct {
	err error
	req *http.Request
}

// captureError hands errors raised inside the table back to Dispatch, so the
// outer router's error handler answers them. The request travels along,
// since the transaction to roll back lives in its context.
func captureError(err error, c echo.Context) {
	if res, ok := c.Request().Context().Value(dispatchKey{}).(*dispatchResult); ok {
		res.err = routeError(err, c)
		res.req = c.Request()
	}
}

// routeError turns the router's 404 and 405 into application errors and
// gives every other error a stack trace.
func routeError(err error, c echo.Context) error {
	switch err {
	case echo.ErrNotFound:
		return errs.NewNotFoundError("Route not found", false, nil).WithCause(err)
	case echo.ErrMethodNotAllowed:
		var allowed []string
		for _, m := range strings.Split(c.Response().Header().Get(echo.HeaderAllow), ",") {
			if m = strings.TrimSpace(m); m != "" {
				allowed = append(allowed, m)
			}
		}
		return errs.NewMethodNotAllowedError(allowed).WithCause(err)
	}
	return errs.WithStack(err)
}

// Dispatch serves the request from the active routes. It is mounted as the
// catch-all handler of the outer router.
func (t *RoutingTable) Dispatch(c echo.Context) error {
	ctx := c.Request().Context()

	if t.stale.Load() {
		if _, err := t.Refresh(ctx); err != nil {
			if t.active.Load() == nil {
				return err
			}
			t.logger.Warn().Err(err).Msg("serving stale routing map")
		}
	}

	inner := t.active.Load()
	if inner == nil {
		return errs.NewNotFoundError("Route not found", false, nil)
	}

	res := &dispatchResult{}
	inner.ServeHTTP(c.Response(), c.Request().WithContext(context.WithValue(ctx, dispatchKey{}, res)))
	if res.err != nil && res.req != nil {
		c.SetRequest(res.req)
	}
	return res.err
}
