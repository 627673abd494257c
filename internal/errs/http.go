package errs

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "email", "error": "invalid email format", "type": "email" }
type FieldError struct {
	// Field is the field name/key the error relates to (e.g. "email").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`

	// Type is the machine-readable rule that failed (e.g. "required").
	Type string `json:"type,omitempty"`
}

// ActionType is a string-based enum describing what the client should do.
type ActionType string

const (
	// ActionTypeRedirect tells the client it should redirect somewhere.
	// Usually "Value" holds the URL or route.
	ActionTypeRedirect ActionType = "redirect"
)

// Action describes an optional “what the client should do next” instruction,
// e.g. “redirect to login”.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the framework-level error: it already knows its HTTP status.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "BAD_REQUEST").
//   - Message: human-friendly message, reported as the exception detail.
//   - Status: HTTP status code.
//   - Override: flag to let middleware decide whether to override the message.
//   - Errors: list of per-field errors.
//   - Action: client instruction, action to be taken (optional).
//   - Headers: extra response headers (never serialized).
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`
	Action   *Action      `json:"action"`
	Headers  http.Header  `json:"-"`

	cause error
	stack errors.StackTrace
}

// Error makes *HTTPError satisfy the built-in `error` interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports true for any *HTTPError target, regardless of Code or Status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// Unwrap returns the error this one was converted from, if any.
func (e *HTTPError) Unwrap() error {
	return e.cause
}

// StackTrace returns the stack recorded by the constructor.
func (e *HTTPError) StackTrace() errors.StackTrace {
	return e.stack
}

// ResponseHeaders implements HeaderCarrier.
func (e *HTTPError) ResponseHeaders() http.Header {
	return e.Headers
}

// WithCause records the error this HTTPError replaces. The cause's stack,
// when it has one, becomes the reported traceback.
func (e *HTTPError) WithCause(err error) *HTTPError {
	e.cause = err
	return e
}

// WithHeader adds a response header and returns the same error.
func (e *HTTPError) WithHeader(key, value string) *HTTPError {
	if e.Headers == nil {
		e.Headers = http.Header{}
	}
	e.Headers.Add(key, value)
	return e
}

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
