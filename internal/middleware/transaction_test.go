package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/database"
	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records commits and rollbacks; every other pgx.Tx method panics.
type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
	commitErr error
	err       error
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.commits++
	return tx.commitErr
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rollbacks++
	return tx.err
}

type fakeStarter struct {
	tx  *fakeTx
	err error
}

func (s *fakeStarter) Begin(context.Context) (pgx.Tx, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func runInTransaction(t *testing.T, db TxStarter, handler echo.HandlerFunc) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/orders", nil), rec)
	tm := &TransactionMiddleware{db: db}
	return c, rec, tm.Begin(handler)(c)
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	var bound pgx.Tx

	_, rec, err := runInTransaction(t, &fakeStarter{tx: tx}, func(c echo.Context) error {
		bound, _ = database.TxFromContext(c.Request().Context())
		return c.JSON(http.StatusCreated, map[string]any{"id": 7})
	})

	require.NoError(t, err)
	assert.Same(t, tx, bound)
	assert.Equal(t, 1, tx.commits)
	assert.Zero(t, tx.rollbacks)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())
}

func TestTransaction_HandlerErrorLeavesRollbackToTranslator(t *testing.T) {
	tx := &fakeTx{}

	c, rec, err := runInTransaction(t, &fakeStarter{tx: tx}, func(c echo.Context) error {
		_ = c.JSON(http.StatusOK, map[string]any{"partial": true})
		return errs.NewUserError("bad order")
	})

	require.Error(t, err)
	assert.Zero(t, tx.commits)
	assert.Zero(t, tx.rollbacks)
	assert.False(t, c.Response().Committed)
	assert.Zero(t, rec.Body.Len())

	NewTranslator().Handle(err, c)

	assert.Equal(t, 1, tx.rollbacks)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransaction_FailedCommitIsAnsweredAsError(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("could not serialize access")}

	c, rec, err := runInTransaction(t, &fakeStarter{tx: tx}, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"saved": true})
	})

	require.ErrorContains(t, err, "could not serialize access")
	assert.Equal(t, 1, tx.commits)
	assert.False(t, c.Response().Committed)

	NewTranslator().Handle(err, c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "saved")
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	tx := &fakeTx{}

	assert.PanicsWithValue(t, "boom", func() {
		_, _, _ = runInTransaction(t, &fakeStarter{tx: tx}, func(echo.Context) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, tx.rollbacks)
	assert.Zero(t, tx.commits)
}

func TestTransaction_BeginFailure(t *testing.T) {
	called := false

	_, _, err := runInTransaction(t, &fakeStarter{err: errors.New("pool closed")}, func(echo.Context) error {
		called = true
		return nil
	})

	require.ErrorContains(t, err, "failed to begin request transaction")
	assert.False(t, called)
}

func TestTransaction_WithoutDatabase(t *testing.T) {
	tm := NewTransactionMiddleware(&server.Server{})
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := tm.Begin(func(c echo.Context) error {
		_, ok := database.TxFromContext(c.Request().Context())
		assert.False(t, ok)
		return c.NoContent(http.StatusNoContent)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
