// Package config manages environment variables and the optional config file.
//
// It reads variables from the process environment (and a `.env` file when present),
// layers them over an optional YAML file, loads them into structured Go types, and
// validates that required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Load an optional YAML file (BOILERPLATE_CONFIG_FILE) underneath the env layer.
//   - Map both into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability, endpoint).
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the process
	// environment before any env var is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix every environment variable must carry to be read.
	EnvPrefix = "BOILERPLATE_"

	// FileEnv names the variable holding the optional YAML config path.
	FileEnv = EnvPrefix + "CONFIG_FILE"
)

/*
	Key mapping for env vars:
	- the BOILERPLATE_ prefix is removed
	- the remainder is lowercased
	- a double underscore marks nesting

	BOILERPLATE_SERVER__PORT       -> server.port
	BOILERPLATE_ENDPOINT__EXTRA_METHOD -> endpoint.extra_method
*/

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from.
// The `validate:"..."` tags are enforced by go-playground/validator.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Endpoint      EndpointConfig       `koanf:"endpoint" validate:"required"`
	Errors        ErrorsConfig         `koanf:"errors"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit caps requests per second per client IP on endpoint routes. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores authentication-related secrets.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`

	// LoginURL is where interactive clients are sent when their session expired.
	LoginURL string `koanf:"login_url" validate:"required"`
}

// EndpointConfig controls how registry rules are spliced into the router.
type EndpointConfig struct {
	// ExtraMethod is appended to every registry endpoint's allow-list.
	ExtraMethod string `koanf:"extra_method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`

	// RefreshInterval is how often the routing table polls the registry version.
	// Zero disables polling; invalidations still arrive over Redis.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// InvalidationChannel is the Redis pub/sub channel used to broadcast resets.
	InvalidationChannel string `koanf:"invalidation_channel" validate:"required"`

	// AdminToken guards the registry reset endpoint. Empty disables it.
	AdminToken string `koanf:"admin_token"`

	// StaticRules are served in addition to the database registry.
	StaticRules []StaticRule `koanf:"static_rules" validate:"dive"`
}

// StaticRule is an endpoint rule declared in the config file.
type StaticRule struct {
	Key     string   `koanf:"key" validate:"required"`
	Name    string   `koanf:"name"`
	Routes  []string `koanf:"routes" validate:"required,min=1"`
	Methods []string `koanf:"methods"`
	Auth    string   `koanf:"auth" validate:"omitempty,oneof=public user user_endpoint"`
	Handler string   `koanf:"handler" validate:"required"`
}

// ErrorsConfig tunes the error translator.
type ErrorsConfig struct {
	// StrictValidationStatus makes request-validation failures answer with 422
	// instead of 500. The body always carries 422.
	StrictValidationStatus bool `koanf:"strict_validation_status"`
}

// Default returns a Config holding the defaults that apply before any file or
// env layer is read.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			ExtraMethod:         http.MethodPatch,
			RefreshInterval:     30 * time.Second,
			InvalidationChannel: "endpoint:routing:invalidate",
		},
		Auth: AuthConfig{
			LoginURL: "/web/login",
		},
	}
}

// envKey converts BOILERPLATE_SECTION__FIELD into section.field.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration, validates it, applies defaults, and returns it.
//
// Layers, lowest precedence first:
//  1. Default()
//  2. YAML file named by BOILERPLATE_CONFIG_FILE, if set
//  3. env vars with prefix BOILERPLATE_
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("could not load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := Default()
	if err := k.UnmarshalWithConf("", mainConfig, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed so telemetry stays consistent across deployments.
	mainConfig.Observability.ServiceName = "endpoint-bridge"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
