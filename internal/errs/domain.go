package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// appError holds what every application error category shares.
type appError struct {
	msg   string
	cause error
	stack errors.StackTrace
}

func newAppError(msg string, cause error) appError {
	return appError{msg: msg, cause: cause, stack: callers()}
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) Unwrap() error {
	return e.cause
}

func (e *appError) StackTrace() errors.StackTrace {
	return e.stack
}

// UserError is a failure the end user caused and can fix (bad input in a business flow).
type UserError struct{ appError }

// NewUserError creates a UserError.
func NewUserError(format string, args ...any) *UserError {
	return &UserError{newAppError(fmt.Sprintf(format, args...), nil)}
}

// AccessError means the current user may not perform the operation.
type AccessError struct{ appError }

// NewAccessError creates an AccessError.
func NewAccessError(format string, args ...any) *AccessError {
	return &AccessError{newAppError(fmt.Sprintf(format, args...), nil)}
}

// MissingError means a record the operation needs does not exist (anymore).
type MissingError struct{ appError }

// NewMissingError creates a MissingError.
func NewMissingError(format string, args ...any) *MissingError {
	return &MissingError{newAppError(fmt.Sprintf(format, args...), nil)}
}

// WrapMissing converts a lookup failure (e.g. pgx.ErrNoRows) into a MissingError.
func WrapMissing(cause error, format string, args ...any) *MissingError {
	return &MissingError{newAppError(fmt.Sprintf(format, args...), cause)}
}

// ValidationError is a business constraint violation detected by the application.
type ValidationError struct{ appError }

// NewValidationError creates a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{newAppError(fmt.Sprintf(format, args...), nil)}
}

// RequestValidationError means the inbound request did not match the endpoint's schema.
// Errors holds one entry per offending field.
type RequestValidationError struct {
	appError
	Errors []FieldError
}

// NewRequestValidationError creates a RequestValidationError from field errors.
func NewRequestValidationError(fieldErrors []FieldError) *RequestValidationError {
	e := &RequestValidationError{Errors: fieldErrors}
	e.appError = newAppError(describeFieldErrors(fieldErrors), nil)
	return e
}

// Messages returns the individual field messages in order.
func (e *RequestValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error)
	}
	return msgs
}

func describeFieldErrors(fieldErrors []FieldError) string {
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fe.Field+": "+fe.Error)
	}
	noun := "errors"
	if len(fieldErrors) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d validation %s: %s", len(fieldErrors), noun, strings.Join(parts, "; "))
}

// SessionExpiredError is raised by the `user` auth method when a browser
// request has no valid session. It carries a redirect to the login page.
type SessionExpiredError struct {
	appError
	LoginURL string
}

// NewSessionExpiredError creates a SessionExpiredError pointing at loginURL.
func NewSessionExpiredError(loginURL string) *SessionExpiredError {
	return &SessionExpiredError{
		appError: newAppError("Session expired", nil),
		LoginURL: loginURL,
	}
}

// HTTPError converts the session expiry into the redirect-bearing 401 sent to browsers.
func (e *SessionExpiredError) HTTPError() *HTTPError {
	return NewUnauthorizedError(e.msg, false).
		WithCause(e).
		WithHeader("Location", e.LoginURL).
		withAction(&Action{
			Type:    ActionTypeRedirect,
			Message: "Session expired, please log in again",
			Value:   e.LoginURL,
		})
}

func (e *HTTPError) withAction(action *Action) *HTTPError {
	e.Action = action
	return e
}
