package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/endpoint-bridge/internal/server"
)

// AuthService owns the Clerk configuration behind the `user` and
// `user_endpoint` auth methods.
type AuthService struct {
	server     *server.Server
	configured bool
}

func NewAuthService(s *server.Server) *AuthService {
	key := s.Config.Auth.SecretKey
	if key == "" {
		s.Logger.Warn().Msg("clerk secret key not set, user endpoints will answer 401")
	}
	clerk.SetKey(key)

	return &AuthService{
		server:     s,
		configured: key != "",
	}
}

// Status describes the auth backend for the health check.
func (a *AuthService) Status() map[string]any {
	status := map[string]any{
		"provider":   "clerk",
		"configured": a.configured,
		"login_url":  a.server.Config.Auth.LoginURL,
	}
	if !a.configured {
		status["status"] = "degraded"
	} else {
		status["status"] = "healthy"
	}
	return status
}
