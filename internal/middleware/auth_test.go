package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/endpoint-bridge/internal/config"
	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Auth:     config.AuthConfig{LoginURL: "/web/login"},
			Endpoint: config.EndpointConfig{AdminToken: "s3cret"},
		},
		Logger: &logger,
	}
}

func noSession(echo.Context) (*clerk.SessionClaims, bool) {
	return nil, false
}

func withSession(subject string) SessionFunc {
	return func(echo.Context) (*clerk.SessionClaims, bool) {
		claims := &clerk.SessionClaims{}
		claims.Subject = subject
		return claims, true
	}
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (echo.Context, bool, error) {
	t.Helper()
	c := echo.New().NewContext(req, httptest.NewRecorder())
	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return c, called, err
}

func browserRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	return req
}

func jsonRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set(echo.HeaderContentType, "application/json; charset=utf-8")
	return req
}

func TestRequireUserEndpoint_ExpiredSessionIsUnauthorized(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: noSession}

	for _, req := range []*http.Request{browserRequest(), jsonRequest()} {
		_, called, err := runAuth(t, auth.For(endpoint.AuthUserEndpoint), req)

		assert.False(t, called)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
		assert.Nil(t, httpErr.Action)
		assert.Empty(t, httpErr.Headers.Get("Location"))

		_, isExpired := err.(*errs.SessionExpiredError)
		assert.False(t, isExpired)
	}
}

func TestRequireUserEndpoint_TranslatesToPlain401(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: noSession}
	_, _, err := runAuth(t, auth.RequireUserEndpoint, browserRequest())

	rec, body := translate(t, NewTranslator(), http.MethodGet, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestRequireUser_BrowserGetsSessionExpired(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: noSession}

	_, called, err := runAuth(t, auth.For(endpoint.AuthUser), browserRequest())

	assert.False(t, called)
	var expired *errs.SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, "/web/login", expired.LoginURL)
}

func TestRequireUser_JSONClientGetsUnauthorized(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: noSession}

	_, _, err := runAuth(t, auth.For(endpoint.AuthUser), jsonRequest())

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
}

func TestRequireUser_ValidSession(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: withSession("user_123")}

	for _, authType := range []endpoint.AuthType{endpoint.AuthUser, endpoint.AuthUserEndpoint} {
		c, called, err := runAuth(t, auth.For(authType), browserRequest())

		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "user_123", GetUserID(c))
	}
}

func TestFor_PublicSkipsSession(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: func(echo.Context) (*clerk.SessionClaims, bool) {
		t.Fatal("public endpoints must not read the session")
		return nil, false
	}}

	_, called, err := runAuth(t, auth.For(endpoint.AuthPublic), jsonRequest())

	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAdminToken(t *testing.T) {
	auth := &AuthMiddleware{server: testServer(), session: noSession}

	tests := []struct {
		name   string
		header string
		ok     bool
		status int
	}{
		{"valid token", "Bearer s3cret", true, 0},
		{"wrong token", "Bearer nope", false, http.StatusForbidden},
		{"missing scheme", "s3cret", false, http.StatusUnauthorized},
		{"no header", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/endpoints/reset", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}

			_, called, err := runAuth(t, auth.RequireAdminToken, req)

			assert.Equal(t, tt.ok, called)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var httpErr *errs.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.Status)
		})
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, wantsJSON(req))

	req.Header.Set(echo.HeaderAccept, "application/json")
	assert.True(t, wantsJSON(req))

	req.Header.Set(echo.HeaderAccept, "text/html, application/json")
	assert.False(t, wantsJSON(req))

	assert.True(t, wantsJSON(jsonRequest()))
}
