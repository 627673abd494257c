package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ruleRow struct {
	key, name, auth, handler, contentType string
	routes, methods                       []string
	version                               int64
}

// fakeRows serves ruleRows; the pgx.Rows methods the repository does not use panic.
type fakeRows struct {
	pgx.Rows
	rows []ruleRow
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	*dest[0].(*string) = row.key
	*dest[1].(*string) = row.name
	*dest[2].(*[]string) = row.routes
	*dest[3].(*[]string) = row.methods
	*dest[4].(*string) = row.auth
	*dest[5].(*string) = row.handler
	*dest[6].(*string) = row.contentType
	*dest[7].(*int64) = row.version
	return nil
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

type fakeQuerier struct {
	rows     []ruleRow
	version  int64
	queryErr error
	queries  []string
}

func (q *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return &fakeRows{rows: q.rows}, nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	return scanFunc(func(dest ...any) error {
		if q.queryErr != nil {
			return q.queryErr
		}
		if sql == bumpRegistryVersion {
			q.version++
		}
		*dest[0].(*int64) = q.version
		return nil
	})
}

func (q *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func orderRow(version int64) ruleRow {
	return ruleRow{
		key: "orders", name: "orders", auth: "public", handler: "ping", contentType: "application/json",
		routes: []string{"/orders", "/orders/:id"}, methods: []string{"GET"}, version: version,
	}
}

func TestEndpointRepository_Rules(t *testing.T) {
	q := &fakeQuerier{rows: []ruleRow{orderRow(1)}}
	repo := NewEndpointRepository(q, nopLogger())

	rules, err := repo.Rules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "orders", rules[0].Key)
	assert.Equal(t, endpoint.AuthPublic, rules[0].Endpoint.Auth)
	assert.Equal(t, []string{"/orders", "/orders/:id"}, rules[0].Routes)
}

func TestEndpointRepository_IdentityMap(t *testing.T) {
	q := &fakeQuerier{rows: []ruleRow{orderRow(1)}}
	repo := NewEndpointRepository(q, nopLogger())
	ctx := context.Background()

	first, err := repo.Rules(ctx)
	require.NoError(t, err)
	first[0].Endpoint.EnsureMethod("PATCH")

	second, err := repo.Rules(ctx)
	require.NoError(t, err)
	assert.Same(t, first[0].Endpoint, second[0].Endpoint)
	assert.Equal(t, []string{"GET", "PATCH"}, second[0].Endpoint.Methods())

	q.rows = []ruleRow{orderRow(2)}
	third, err := repo.Rules(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first[0].Endpoint, third[0].Endpoint)
	assert.Equal(t, []string{"GET"}, third[0].Endpoint.Methods())
}

func TestEndpointRepository_BumpDropsIdentityMap(t *testing.T) {
	q := &fakeQuerier{rows: []ruleRow{orderRow(1)}}
	repo := NewEndpointRepository(q, nopLogger())
	ctx := context.Background()

	v, err := repo.LastVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	first, err := repo.Rules(ctx)
	require.NoError(t, err)

	v, err = repo.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = repo.LastVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	second, err := repo.Rules(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first[0].Endpoint, second[0].Endpoint)
}

func TestEndpointRepository_VersionComesFromRegistryRow(t *testing.T) {
	q := &fakeQuerier{version: 41}
	repo := NewEndpointRepository(q, nopLogger())
	ctx := context.Background()

	v, err := repo.LastVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(41), v)

	v, err = repo.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	assert.Equal(t, []string{selectRegistryVersion, bumpRegistryVersion}, q.queries)
	for _, sql := range q.queries {
		assert.NotContains(t, sql, "last_value")
	}
}

func TestEndpointRepository_QueryError(t *testing.T) {
	q := &fakeQuerier{queryErr: errors.New("connection refused")}
	repo := NewEndpointRepository(q, nopLogger())

	_, err := repo.Rules(context.Background())
	assert.ErrorContains(t, err, "table:endpoint_route")

	_, err = repo.LastVersion(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorIs(t, err, q.queryErr)
}

func TestRegistryFor_SharesRepositoryPerQuerier(t *testing.T) {
	a := &fakeQuerier{}
	b := &fakeQuerier{}

	assert.Same(t, RegistryFor(a, nopLogger()), RegistryFor(a, nopLogger()))
	assert.NotSame(t, RegistryFor(a, nopLogger()), RegistryFor(b, nopLogger()))
}

func ExampleEndpointRepository_Rules() {
	repo := NewEndpointRepository(&fakeQuerier{rows: []ruleRow{orderRow(1)}}, nopLogger())
	rules, _ := repo.Rules(context.Background())
	fmt.Println(rules[0])
	// Output: orders /orders,/orders/:id -> orders
}
