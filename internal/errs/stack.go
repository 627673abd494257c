package errs

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// stackTracer is the interface pkg/errors values satisfy.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// HeaderCarrier is implemented by errors that want extra headers on the error response.
type HeaderCarrier interface {
	ResponseHeaders() http.Header
}

var pkgPrefix = reflect.TypeOf(HTTPError{}).PkgPath() + "."

// callers records the current stack, minus the frames that belong to this package.
func callers() errors.StackTrace {
	st := errors.New("").(stackTracer).StackTrace()
	for i, f := range st {
		fn := runtime.FuncForPC(uintptr(f) - 1)
		if fn == nil || !strings.HasPrefix(fn.Name(), pkgPrefix) {
			return st[i:]
		}
	}
	return st
}

// WithStack attaches a stack trace to err unless something in its chain already has one.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var st stackTracer
	if errors.As(err, &st) && len(st.StackTrace()) > 0 {
		return err
	}
	return errors.WithStack(err)
}

// Traceback renders the stack of the innermost error in err's chain that
// carries one, as an ordered list of lines (function, then file:line).
// It returns an empty, non-nil slice when no stack is available.
func Traceback(err error) []string {
	var stack errors.StackTrace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok && len(st.StackTrace()) > 0 {
			stack = st.StackTrace()
		}
	}

	lines := make([]string, 0, len(stack)*2)
	for _, f := range stack {
		for _, line := range strings.Split(fmt.Sprintf("%+v", f), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// ResponseHeaders returns the headers attached to the first HeaderCarrier in err's chain.
func ResponseHeaders(err error) http.Header {
	var hc HeaderCarrier
	if errors.As(err, &hc) {
		return hc.ResponseHeaders()
	}
	return nil
}

// TypeName reports the Go type name of the innermost error in err's chain,
// e.g. "PgError".
func TypeName(err error) string {
	if err == nil {
		return "Error"
	}
	cause := err
	for next := errors.Unwrap(cause); next != nil; next = errors.Unwrap(next) {
		cause = next
	}
	t := reflect.TypeOf(cause)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}
