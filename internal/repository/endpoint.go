package repository

import (
	"context"
	"sync"

	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Querier is the subset of *pgxpool.Pool and pgx.Tx the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EndpointRepository is the endpoint registry stored in the endpoint_route table.
//
// Rules are kept in an identity map keyed by rule key: as long as a row's
// version does not change, the same *endpoint.Endpoint is handed out again,
// so allow-list changes made by the router survive reloads.
type EndpointRepository struct {
	db     Querier
	logger *zerolog.Logger

	mu     sync.Mutex
	loaded map[string]loadedRule
}

type loadedRule struct {
	version int64
	rule    *endpoint.Rule
}

var registries sync.Map // Querier -> *EndpointRepository

// RegistryFor returns the registry bound to db, creating it on first use.
func RegistryFor(db Querier, logger *zerolog.Logger) *EndpointRepository {
	if r, ok := registries.Load(db); ok {
		return r.(*EndpointRepository)
	}
	r, _ := registries.LoadOrStore(db, NewEndpointRepository(db, logger))
	return r.(*EndpointRepository)
}

// NewEndpointRepository creates an unshared repository on db.
func NewEndpointRepository(db Querier, logger *zerolog.Logger) *EndpointRepository {
	return &EndpointRepository{
		db:     db,
		logger: logger,
		loaded: make(map[string]loadedRule),
	}
}

const selectActiveRules = `
SELECT key, name, routes, methods, auth, handler, content_type, version
FROM endpoint_route
WHERE active
ORDER BY key`

// Rules implements endpoint.Registry.
func (r *EndpointRepository) Rules(ctx context.Context) ([]*endpoint.Rule, error) {
	rows, err := r.db.Query(ctx, selectActiveRules)
	if err != nil {
		return nil, errors.Wrap(err, "table:endpoint_route: query rules")
	}
	defer rows.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var rules []*endpoint.Rule
	for rows.Next() {
		var (
			key, name, auth, handler, contentType string
			routes, methods                       []string
			version                               int64
		)
		if err := rows.Scan(&key, &name, &routes, &methods, &auth, &handler, &contentType, &version); err != nil {
			return nil, errors.Wrap(err, "table:endpoint_route: scan rule")
		}
		seen[key] = struct{}{}

		if cached, ok := r.loaded[key]; ok && cached.version == version {
			rules = append(rules, cached.rule)
			continue
		}

		ep := endpoint.New(name, methods, endpoint.AuthType(auth), handler)
		ep.ContentType = contentType
		rule := &endpoint.Rule{Key: key, Routes: routes, Endpoint: ep}
		r.loaded[key] = loadedRule{version: version, rule: rule}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "table:endpoint_route: read rules")
	}

	for key := range r.loaded {
		if _, ok := seen[key]; !ok {
			delete(r.loaded, key)
		}
	}

	r.logger.Debug().Int("rules", len(rules)).Msg("loaded endpoint rules")
	return rules, nil
}

const (
	selectRegistryVersion = `SELECT version FROM endpoint_route_registry`
	bumpRegistryVersion   = `SELECT endpoint_route_bump()`
)

// LastVersion implements endpoint.Registry. The version lives in a row that
// writers bump inside their own transaction, so it never runs ahead of the
// committed rules.
func (r *EndpointRepository) LastVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRow(ctx, selectRegistryVersion).Scan(&v); err != nil {
		return 0, errors.Wrap(err, "table:endpoint_route_registry: read version")
	}
	return v, nil
}

// Bump advances the registry version without touching any rule. It is how a
// full-registry reset is announced to routers that poll the version.
func (r *EndpointRepository) Bump(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRow(ctx, bumpRegistryVersion).Scan(&v); err != nil {
		return 0, errors.Wrap(err, "table:endpoint_route_registry: bump version")
	}

	r.mu.Lock()
	r.loaded = make(map[string]loadedRule)
	r.mu.Unlock()

	return v, nil
}
