package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `
primary:
  env: test
server:
  port: "8080"
  read_timeout: 30
  write_timeout: 30
  idle_timeout: 60
  cors_allowed_origins: ["http://localhost:3000"]
database:
  host: localhost
  port: 5432
  user: postgres
  password: postgres
  name: endpoints
  ssl_mode: disable
  max_open_conns: 10
  max_idle_conns: 5
  conn_max_lifetime: 300
  conn_max_idle_time: 60
redis:
  address: localhost:6379
auth:
  secret_key: sk_test
endpoint:
  refresh_interval: 5s
  static_rules:
    - key: ping
      routes: ["/ping"]
      methods: ["GET"]
      auth: public
      handler: ping
`

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(FileEnv, path)
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	writeConfig(t, testConfigFile)
	t.Setenv("BOILERPLATE_SERVER__PORT", "9090")
	t.Setenv("BOILERPLATE_ENDPOINT__EXTRA_METHOD", "PUT")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "PUT", cfg.Endpoint.ExtraMethod)
	assert.Equal(t, 5*time.Second, cfg.Endpoint.RefreshInterval)
	require.Len(t, cfg.Endpoint.StaticRules, 1)
	assert.Equal(t, "ping", cfg.Endpoint.StaticRules[0].Handler)
}

func TestLoadConfig_Defaults(t *testing.T) {
	writeConfig(t, testConfigFile)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "PATCH", cfg.Endpoint.ExtraMethod)
	assert.Equal(t, "endpoint:routing:invalidate", cfg.Endpoint.InvalidationChannel)
	assert.Equal(t, "/web/login", cfg.Auth.LoginURL)
	assert.False(t, cfg.Errors.StrictValidationStatus)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, "endpoint-bridge", cfg.Observability.ServiceName)
	assert.Equal(t, "test", cfg.Observability.Environment)
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	writeConfig(t, testConfigFile)
	t.Setenv("BOILERPLATE_ENDPOINT__EXTRA_METHOD", "FETCH")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "config validation failed")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("BOILERPLATE_SERVER__PORT"))
	assert.Equal(t, "endpoint.extra_method", envKey("BOILERPLATE_ENDPOINT__EXTRA_METHOD"))
}
