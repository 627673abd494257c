package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_NoRows(t *testing.T) {
	err := HandleError(fmt.Errorf("table:endpoint_routes: find rule: %w", pgx.ErrNoRows))

	var missing *errs.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Endpoint Route not found", err.Error())
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	err = HandleError(pgx.ErrNoRows)
	assert.Equal(t, "Resource not found", err.Error())
}

func TestHandleError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Severity:       "ERROR",
		TableName:      "users",
		ConstraintName: "users_email_key",
	}

	err := HandleError(fmt.Errorf("insert user: %w", pgErr))

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "USER_ALREADY_EXISTS", httpErr.Code)
	assert.Equal(t, "A User with this Email already exists", httpErr.Message)
}

func TestHandleError_NotNullViolation(t *testing.T) {
	err := HandleError(&pgconn.PgError{Code: "23502", TableName: "orders", ColumnName: "customer_name"})

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "The Customer Name is required", httpErr.Message)
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "customer_name", httpErr.Errors[0].Field)
}

func TestHandleError_UnmappedDatabaseErrorIsUnchanged(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}

	err := HandleError(deadlock)

	assert.Same(t, error(deadlock), err)
	var httpErr *errs.HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

func TestHandleError_PassesOtherErrorsThrough(t *testing.T) {
	plain := fmt.Errorf("plain")
	assert.Same(t, plain, HandleError(plain))

	httpErr := errs.NewNotFoundError("gone", false, nil)
	assert.Equal(t, error(httpErr), HandleError(httpErr))
}

func TestIsDatabaseError(t *testing.T) {
	assert.True(t, IsDatabaseError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	assert.True(t, IsDatabaseError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDatabaseError(fmt.Errorf("plain")))
}

func TestMapCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, MapCode("23505"))
	assert.Equal(t, Other, MapCode("99999"))
	assert.Equal(t, SeverityError, MapSeverity("bogus"))
}

func TestErrCode(t *testing.T) {
	sqlErr := ConvertPgError(&pgconn.PgError{Code: "23503", Severity: "ERROR", Message: "fk"})

	assert.Equal(t, ForeignKeyViolation, ErrCode(fmt.Errorf("insert: %w", sqlErr)))
	assert.Equal(t, Other, ErrCode(fmt.Errorf("plain")))
	assert.Equal(t, "ERROR: fk (SQLSTATE 23503)", sqlErr.Error())
}
