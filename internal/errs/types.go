package errs

import (
	"net/http"
	"strings"
)

func newHTTPError(status int, message string, override bool) *HTTPError {
	return &HTTPError{
		// http.StatusText(401) => "Unauthorized" => "UNAUTHORIZED"
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(status)),
		Message:  message,
		Status:   status,
		Override: override,
		stack:    callers(),
	}
}

// NewHTTPError creates an HTTPError for an arbitrary status code.
func NewHTTPError(status int, message string) *HTTPError {
	return newHTTPError(status, message, false)
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
//
// Parameters:
//   - message: text to send to client
//   - override: a flag the middleware can use to decide whether
//     to replace the message.
func NewUnauthorizedError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusUnauthorized, message, override)
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string, override bool) *HTTPError {
	return newHTTPError(http.StatusForbidden, message, override)
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// This supports extra payload:
//   - code: optional custom code string (if nil, defaults to "BAD_REQUEST")
//   - errors: optional slice of field errors
//   - action: optional client instruction (e.g. redirect)
func NewBadRequestError(message string, override bool, code *string, errors []FieldError, action *Action) *HTTPError {
	e := newHTTPError(http.StatusBadRequest, message, override)
	if code != nil {
		e.Code = *code
	}
	e.Errors = errors
	e.Action = action
	return e
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	e := newHTTPError(http.StatusNotFound, message, override)
	if code != nil {
		e.Code = *code
	}
	return e
}

// NewMethodNotAllowedError creates a 405 HTTPError advertising the allowed methods.
func NewMethodNotAllowedError(allowed []string) *HTTPError {
	e := newHTTPError(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), false)
	if len(allowed) > 0 {
		e.WithHeader("Allow", strings.Join(allowed, ", "))
	}
	return e
}
