package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/deppfellow/endpoint-bridge/internal/database"
	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/lib/metrics"
	"github.com/deppfellow/endpoint-bridge/internal/sqlerr"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Response is what a category handler decides for an error: the HTTP status
// actually sent and the envelope written as body.
type Response struct {
	Status   int
	Envelope errs.Envelope
	Header   http.Header
}

type category struct {
	name   string
	match  func(err error) bool
	render func(c echo.Context, err error) Response
}

// Translator turns errors returned by handlers into JSON error envelopes.
//
// Categories are tried against every error of the chain, outermost first,
// so a 401 that wraps an expired session is answered as the 401.
type Translator struct {
	metrics                *metrics.Metrics
	strictValidationStatus bool

	categories []category
	unhandled  category
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithMetrics records every translated error on m.
func WithMetrics(m *metrics.Metrics) TranslatorOption {
	return func(t *Translator) { t.metrics = m }
}

// WithStrictValidationStatus sends request validation failures with a 422
// status instead of 500.
func WithStrictValidationStatus(strict bool) TranslatorOption {
	return func(t *Translator) { t.strictValidationStatus = strict }
}

// NewTranslator creates a Translator with the built-in categories registered.
func NewTranslator(opts ...TranslatorOption) *Translator {
	t := &Translator{}
	for _, opt := range opts {
		opt(t)
	}

	Register(t, "UserError", userErrorHandler)
	Register(t, "AccessError", accessErrorHandler)
	Register(t, "MissingError", missingErrorHandler)
	Register(t, "ValidationError", validationErrorHandler)
	Register(t, "RequestValidationError", t.requestValidationErrorHandler)
	Register(t, "SessionExpiredError", sessionExpiredHandler)
	Register(t, "HTTPException", httpErrorHandler)
	Register(t, "HTTPException", echoErrorHandler)

	t.unhandled = category{name: "Exception", render: unhandledErrorHandler}
	return t
}

// Register adds a handler for errors of type E. Handlers registered first win
// when several match the same error.
func Register[E error](t *Translator, name string, handler func(c echo.Context, err E) Response) {
	t.categories = append(t.categories, category{
		name: name,
		match: func(err error) bool {
			_, ok := err.(E)
			return ok
		},
		render: func(c echo.Context, err error) Response {
			return handler(c, err.(E))
		},
	})
}

func (t *Translator) lookup(err error) (*category, error) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		for i := range t.categories {
			if t.categories[i].match(e) {
				return &t.categories[i], e
			}
		}
	}
	return nil, nil
}

// resolve finds the category for err. Database driver errors nobody
// registered for are normalized first; the normalized error is returned.
// Driver errors sqlerr does not map stay unhandled.
func (t *Translator) resolve(err error) (*category, error, error) {
	cat, target := t.lookup(err)
	if cat == nil && sqlerr.IsDatabaseError(err) {
		err = sqlerr.HandleError(err)
		cat, target = t.lookup(err)
	}
	if cat == nil {
		cat, target = &t.unhandled, err
	}
	return cat, target, err
}

// Status reports the HTTP status err is answered with.
func (t *Translator) Status(c echo.Context, err error) int {
	if err == nil {
		return http.StatusOK
	}
	cat, target, _ := t.resolve(err)
	return cat.render(c, target).Status
}

// Handle is the echo.HTTPErrorHandler of the service.
func (t *Translator) Handle(err error, c echo.Context) {
	if err == nil {
		return
	}

	cat, target, err := t.resolve(err)

	logger := GetLogger(c)

	rollback(c, cat.name)

	resp := cat.render(c, target)

	event := logger.Warn()
	if resp.Status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	}
	event.Err(err).
		Str("category", cat.name).
		Int("status", resp.Status).
		Msg("request failed")

	if resp.Status != resp.Envelope.StatusCode {
		logger.Warn().
			Str("tag", "status_mismatch").
			Int("status", resp.Status).
			Int("status_code", resp.Envelope.StatusCode).
			Msg("response status differs from envelope status_code")
	}

	t.metrics.ErrorTranslated(cat.name, resp.Status)

	if c.Response().Committed {
		return
	}

	header := c.Response().Header()
	for _, extra := range []http.Header{errs.ResponseHeaders(err), resp.Header} {
		for key, values := range extra {
			header.Del(key)
			for _, v := range values {
				header.Add(key, v)
			}
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(resp.Status)
		return
	}
	_ = c.JSON(resp.Status, resp.Envelope)
}

// rollback aborts the transaction bound to the request, if there is one.
func rollback(c echo.Context, reason string) {
	ctx := c.Request().Context()
	tx, ok := database.TxFromContext(ctx)
	if !ok {
		return
	}

	logger := GetLogger(c)
	logger.Debug().Msgf("rollback on %s", reason)

	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Error().Err(err).Msg("failed to rollback request transaction")
	}
}

func userErrorHandler(_ echo.Context, err *errs.UserError) Response {
	return Response{
		Status:   http.StatusBadRequest,
		Envelope: errs.NewEnvelope(http.StatusBadRequest, "error", "User Error", err),
	}
}

func accessErrorHandler(_ echo.Context, err *errs.AccessError) Response {
	return Response{
		Status:   http.StatusForbidden,
		Envelope: errs.NewEnvelope(http.StatusForbidden, "error", "Access Error", err),
	}
}

func missingErrorHandler(_ echo.Context, err *errs.MissingError) Response {
	return Response{
		Status:   http.StatusNotFound,
		Envelope: errs.NewEnvelope(http.StatusNotFound, "error", "MissingError", err),
	}
}

func validationErrorHandler(_ echo.Context, err *errs.ValidationError) Response {
	detail := errs.NewExceptionDetail("ValidationError", err.Error(), http.StatusBadRequest, nil)
	return Response{
		Status:   http.StatusBadRequest,
		Envelope: errs.NewEnvelope(http.StatusBadRequest, err.Error(), detail, err),
	}
}

func (t *Translator) requestValidationErrorHandler(_ echo.Context, err *errs.RequestValidationError) Response {
	detail := errs.NewExceptionDetail("RequestValidationError", err.Error(), http.StatusUnprocessableEntity, err.Errors)

	status := http.StatusInternalServerError
	if t.strictValidationStatus {
		status = http.StatusUnprocessableEntity
	}

	return Response{
		Status: status,
		Envelope: errs.NewEnvelope(
			http.StatusUnprocessableEntity,
			strings.Join(err.Messages(), ", "),
			detail,
			err,
		),
	}
}

func sessionExpiredHandler(c echo.Context, err *errs.SessionExpiredError) Response {
	httpErr := err.HTTPError()
	resp := httpErrorHandler(c, httpErr)
	resp.Header = httpErr.Headers
	return resp
}

func httpErrorHandler(_ echo.Context, err *errs.HTTPError) Response {
	return Response{
		Status:   err.Status,
		Envelope: errs.NewEnvelope(err.Status, "error", err.Detail(), err),
	}
}

func echoErrorHandler(_ echo.Context, err *echo.HTTPError) Response {
	detail, ok := err.Message.(string)
	if !ok {
		detail = http.StatusText(err.Code)
	}
	return Response{
		Status:   err.Code,
		Envelope: errs.NewEnvelope(err.Code, "error", detail, err),
	}
}

func unhandledErrorHandler(_ echo.Context, err error) Response {
	detail := errs.NewExceptionDetail(errs.TypeName(err), err.Error(), http.StatusInternalServerError, nil)
	return Response{
		Status:   http.StatusInternalServerError,
		Envelope: errs.NewEnvelope(http.StatusInternalServerError, "error", detail, err),
	}
}
