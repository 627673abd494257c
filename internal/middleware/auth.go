package middleware

import (
	"crypto/subtle"
	"mime"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/endpoint-bridge/internal/endpoint"
	"github.com/deppfellow/endpoint-bridge/internal/errs"
	"github.com/deppfellow/endpoint-bridge/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionFunc returns the session claims of the request, if it has a valid session.
type SessionFunc func(c echo.Context) (*clerk.SessionClaims, bool)

// AuthMiddleware implements the auth methods endpoints can ask for.
type AuthMiddleware struct {
	server  *server.Server
	session SessionFunc
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server:  s,
		session: clerkSession(),
	}
}

// clerkSession verifies the bearer token with Clerk. Invalid tokens are
// treated like missing ones; the auth method decides what to answer.
func clerkSession() SessionFunc {
	verify := clerkhttp.WithHeaderAuthorization(
		clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})),
	)

	return func(c echo.Context) (*clerk.SessionClaims, bool) {
		var claims *clerk.SessionClaims
		verify(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			claims, _ = clerk.SessionClaimsFromContext(r.Context())
		})).ServeHTTP(c.Response(), c.Request())
		return claims, claims != nil
	}
}

// For returns the middleware enforcing auth.
func (auth *AuthMiddleware) For(authType endpoint.AuthType) echo.MiddlewareFunc {
	switch authType {
	case endpoint.AuthPublic:
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	case endpoint.AuthUser:
		return auth.RequireUser
	default:
		return auth.RequireUserEndpoint
	}
}

// RequireUser is the `user` auth method. Browser requests without a session
// fail with a SessionExpiredError, which redirects to the login page; JSON
// requests get a plain 401.
func (auth *AuthMiddleware) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := auth.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

// RequireUserEndpoint is the `user_endpoint` auth method: the `user` check,
// except that an expired session is always a 401. Technical endpoints must
// never answer with a login redirect.
func (auth *AuthMiddleware) RequireUserEndpoint(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := auth.authenticate(c); err != nil {
			var expired *errs.SessionExpiredError
			if errors.As(err, &expired) {
				return errs.NewUnauthorizedError("Unauthorized", false).WithCause(err)
			}
			return err
		}
		return next(c)
	}
}

func (auth *AuthMiddleware) authenticate(c echo.Context) error {
	claims, ok := auth.session(c)
	if !ok {
		GetLogger(c).Debug().Str("request_id", GetRequestID(c)).Msg("no valid session on request")

		if wantsJSON(c.Request()) {
			return errs.NewUnauthorizedError("Unauthorized", false)
		}
		return errs.NewSessionExpiredError(auth.server.Config.Auth.LoginURL)
	}

	c.Set(UserIDKey, claims.Subject)
	c.Set(UserRoleKey, claims.ActiveOrganizationRole)
	c.Set("permissions", claims.Claims.ActiveOrganizationPermissions)

	GetLogger(c).Debug().
		Str("user_id", claims.Subject).
		Str("request_id", GetRequestID(c)).
		Msg("user authenticated successfully")

	return nil
}

// RequireAdminToken guards the admin API with the configured bearer token.
// Requests without a token get a 401, requests with a wrong one a 403.
func (auth *AuthMiddleware) RequireAdminToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, found := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		expected := auth.server.Config.Endpoint.AdminToken

		if !found || expected == "" {
			return errs.NewUnauthorizedError("Unauthorized", false)
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return errs.NewForbiddenError("Forbidden", false)
		}
		return next(c)
	}
}

// wantsJSON reports whether the client is a JSON API client rather than a browser.
func wantsJSON(r *http.Request) bool {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get(echo.HeaderContentType)); err == nil && mediaType == echo.MIMEApplicationJSON {
		return true
	}

	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}
