package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/endpoint-bridge/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// uniqueKeySuffix matches constraint names like endpoint_route_key_key.
var uniqueKeySuffix = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// ErrCode returns the Code of the first *Error in err's chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	return Other
}

// ConvertPgError normalizes a driver error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// HandleError converts a database error into the application error answered
// to clients:
//   - constraint violations become a 400 *errs.HTTPError with a code like ENDPOINT_ROUTE_ALREADY_EXISTS
//   - "no rows" becomes an *errs.MissingError
//
// Other driver errors, errors that are already HTTP errors, and errors that
// do not come from the database are returned unchanged.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromPgError(ConvertPgError(pgErr), err)
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.WrapMissing(err, "%s not found", missingEntity(err))
	}

	return err
}

func fromPgError(sqlErr *Error, cause error) error {
	code := appCode(sqlErr.TableName, sqlErr.Code)
	message := friendlyMessage(sqlErr)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return errs.NewBadRequestError(message, false, &code, nil, nil).WithCause(cause)

	case UniqueViolation:
		if column := uniqueColumn(sqlErr.ConstraintName); column != "" {
			message = strings.ReplaceAll(message, "identifier", humanize(column))
		}
		return errs.NewBadRequestError(message, true, &code, nil, nil).WithCause(cause)

	case NotNullViolation:
		fieldErrors := []errs.FieldError{{
			Field: strings.ToLower(sqlErr.ColumnName),
			Error: "is required",
			Type:  "required",
		}}
		return errs.NewBadRequestError(message, true, &code, fieldErrors, nil).WithCause(cause)

	case CheckViolation:
		return errs.NewBadRequestError(message, true, &code, nil, nil).WithCause(cause)
	}

	return cause
}

// missingEntity reads the table out of a "table:<name>:" tag left by the
// repositories, falling back to "Resource".
func missingEntity(err error) string {
	_, rest, found := strings.Cut(err.Error(), "table:")
	if !found {
		return "Resource"
	}
	table, _, _ := strings.Cut(rest, ":")
	return entityName(table, "")
}

// appCode builds <ENTITY>_<ACTION>, e.g. ENDPOINT_ROUTE_ALREADY_EXISTS.
func appCode(table string, code Code) string {
	entity := strings.ToUpper(singular(table))
	if entity == "" {
		entity = "RECORD"
	}

	action := "ERROR"
	switch code {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", entity, action)
}

func friendlyMessage(sqlErr *Error) string {
	entity := entityName(sqlErr.TableName, sqlErr.ColumnName)
	field := humanize(sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entity)
	case UniqueViolation:
		return fmt.Sprintf("A %s with this identifier already exists", entity)
	case NotNullViolation:
		if field == "" {
			field = "field"
		}
		return fmt.Sprintf("The %s is required", field)
	case CheckViolation:
		if field == "" {
			return "One or more values do not meet required conditions"
		}
		return fmt.Sprintf("The %s value does not meet required conditions", field)
	}
	return "An error occurred while processing your request"
}

// entityName prefers the referenced entity of an *_id column, then the table.
func entityName(table, column string) string {
	if base, ok := strings.CutSuffix(strings.ToLower(column), "_id"); ok && base != "" {
		return humanize(base)
	}
	if table != "" {
		return humanize(singular(table))
	}
	return "record"
}

func singular(name string) string {
	if len(name) > 1 {
		name, _ = strings.CutSuffix(name, "s")
		name, _ = strings.CutSuffix(name, "S")
	}
	return name
}

// humanize turns snake_case into Title Case.
func humanize(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// uniqueColumn guesses the column of a unique constraint named
// unique_<table>_<column> or <table>_<column>_key.
func uniqueColumn(constraint string) string {
	if strings.HasPrefix(constraint, "unique_") {
		if parts := strings.Split(constraint, "_"); len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}
	if m := uniqueKeySuffix.FindStringSubmatch(constraint); len(m) > 1 {
		return m[1]
	}
	return ""
}

// IsDatabaseError reports whether err originates from the database driver.
func IsDatabaseError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) || errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
