package service

import (
	"testing"

	"github.com/deppfellow/endpoint-bridge/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestAuthService_Status(t *testing.T) {
	s := testServer()
	s.Config = &config.Config{Auth: config.AuthConfig{LoginURL: "/web/login"}}

	status := NewAuthService(s).Status()
	assert.Equal(t, false, status["configured"])
	assert.Equal(t, "degraded", status["status"])
	assert.Equal(t, "/web/login", status["login_url"])

	s.Config.Auth.SecretKey = "sk_test_123"
	status = NewAuthService(s).Status()
	assert.Equal(t, true, status["configured"])
	assert.Equal(t, "healthy", status["status"])
}
