package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giannis84/matchday-favourites/internal/auth"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	defaultEnvPath    = ".env"

	StoreDriverREST     = "rest"
	StoreDriverPostgres = "postgres"

	defaultRemoteTimeout      = 30 * time.Second
	defaultSessionIdleTimeout = 30 * time.Minute
)

// Config holds the application configuration.
type Config struct {
	APIPort    string `yaml:"api_port"`
	HealthPort string `yaml:"health_port"`

	// HTTP server timeouts (optional, defaults apply in server.go)
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// StoreDriver selects the favourites backend: "rest" (default) or "postgres".
	StoreDriver string `yaml:"store_driver"`

	// REST backend hosting /favoritos/.
	RemoteBaseURL string        `yaml:"remote_base_url"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`

	// OptimisticUpdates applies mutations to the cache before the store acknowledges them.
	OptimisticUpdates bool `yaml:"optimistic_updates"`

	// SessionIdleTimeout is how long an unused session keeps its cache.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	LogFormat string `yaml:"log_format"` // json, text or tint
	LogLevel  string `yaml:"log_level"`

	// JWT signing secret (env var only). When empty, only unsigned tokens
	// (alg=none) are accepted, and only if AllowUnsignedTokens is true.
	// Normally in production it should be fetched from a secrets provider like Vault,
	// and not set via config file or env var.
	JWTSecret string `yaml:"-"`

	// AllowUnsignedTokens permits unsigned JWT tokens (alg=none) when true.
	// This should ONLY be enabled for local development and testing.
	// Requires explicit opt-in via ALLOW_UNSIGNED_TOKENS=true env var.
	AllowUnsignedTokens bool `yaml:"-"`

	// Database configuration (env vars only, secrets must not live in config.yaml).
	// Required only when StoreDriver is "postgres".
	DBHost     string `yaml:"-"`
	DBPort     string `yaml:"-"`
	DBUser     string `yaml:"-"`
	DBPassword string `yaml:"-"`
	DBName     string `yaml:"-"`

	// Rate limiting configuration
	RateLimitRequests int           `yaml:"rate_limit_requests"` // Max requests per window (0 = disabled)
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`   // Time window for rate limiting
}

// Load reads configuration with the following precedence (highest wins):
//  1. Environment variables
//  2. A .env file (path from ENV_FILE, or ".env"); it never overrides variables already set
//  3. YAML config file (path from CONFIG_PATH env var, or "config.yaml")
//
// Secrets are loaded exclusively from the environment.
func Load() (*Config, error) {
	envPath := os.Getenv("ENV_FILE")
	if envPath == "" {
		envPath = defaultEnvPath
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file %s: %w", envPath, err)
	}

	cfg := &Config{}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	overrideString("API_PORT", &cfg.APIPort)
	overrideString("HEALTH_PORT", &cfg.HealthPort)
	overrideString("STORE_DRIVER", &cfg.StoreDriver)
	overrideString("REMOTE_BASE_URL", &cfg.RemoteBaseURL)
	overrideString("LOG_FORMAT", &cfg.LogFormat)
	overrideString("LOG_LEVEL", &cfg.LogLevel)

	// HTTP server timeouts (optional, defaults apply in server.go if zero)
	overrideDuration("READ_TIMEOUT", &cfg.ReadTimeout)
	overrideDuration("WRITE_TIMEOUT", &cfg.WriteTimeout)
	overrideDuration("IDLE_TIMEOUT", &cfg.IdleTimeout)
	overrideDuration("REMOTE_TIMEOUT", &cfg.RemoteTimeout)
	overrideDuration("SESSION_IDLE_TIMEOUT", &cfg.SessionIdleTimeout)

	if v := os.Getenv("OPTIMISTIC_UPDATES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OptimisticUpdates = b
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	if cfg.APIPort == "" {
		return nil, fmt.Errorf("api_port is required (set via config file or API_PORT env var)")
	}
	if cfg.HealthPort == "" {
		return nil, fmt.Errorf("health_port is required (set via config file or HEALTH_PORT env var)")
	}

	// JWT secret (optional, when empty AND AllowUnsignedTokens is true, unsigned tokens are accepted)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	// Allow unsigned tokens (explicit opt-in for dev/test only)
	cfg.AllowUnsignedTokens = os.Getenv("ALLOW_UNSIGNED_TOKENS") == "true"

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreDriverREST
	}
	switch cfg.StoreDriver {
	case StoreDriverREST:
		if cfg.RemoteBaseURL == "" {
			return nil, fmt.Errorf("remote_base_url is required for the rest store driver (set via config file or REMOTE_BASE_URL env var)")
		}
	case StoreDriverPostgres:
		if err := cfg.loadDatabaseEnv(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store_driver %q (want %q or %q)", cfg.StoreDriver, StoreDriverREST, StoreDriverPostgres)
	}

	if cfg.RemoteTimeout == 0 {
		cfg.RemoteTimeout = defaultRemoteTimeout
	}
	if cfg.SessionIdleTimeout == 0 {
		cfg.SessionIdleTimeout = defaultSessionIdleTimeout
	}

	// Rate limiting configuration (env vars override config file)
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitRequests = n
		}
	}
	overrideDuration("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow)

	// Apply rate limiting defaults if partially configured
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute // Default window: 1 minute
	}

	return cfg, nil
}

func (c *Config) loadDatabaseEnv() error {
	c.DBHost = os.Getenv("POSTGRES_HOST")
	c.DBPort = os.Getenv("POSTGRES_PORT")
	c.DBUser = os.Getenv("POSTGRES_USER")
	c.DBPassword = os.Getenv("POSTGRES_PASSWORD")
	c.DBName = os.Getenv("POSTGRES_DB")

	if c.DBHost == "" {
		return fmt.Errorf("POSTGRES_HOST env var is required")
	}
	if c.DBPort == "" {
		return fmt.Errorf("POSTGRES_PORT env var is required")
	}
	if c.DBUser == "" {
		return fmt.Errorf("POSTGRES_USER env var is required")
	}
	if c.DBPassword == "" {
		return fmt.Errorf("POSTGRES_PASSWORD env var is required")
	}
	if c.DBName == "" {
		return fmt.Errorf("POSTGRES_DB env var is required")
	}
	return nil
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PostgresConnString returns a PostgreSQL connection string.
func (c *Config) PostgresConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// APIAddr returns the listen address for the API server.
func (c *Config) APIAddr() string {
	return ":" + c.APIPort
}

// HealthAddr returns the listen address for the health check server.
func (c *Config) HealthAddr() string {
	return ":" + c.HealthPort
}

// AuthConfig returns the JWT authentication configuration.
func (c *Config) AuthConfig() auth.AuthConfig {
	return auth.AuthConfig{
		Secret:              c.JWTSecret,
		AllowUnsignedTokens: c.AllowUnsignedTokens,
	}
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Requests int           // Max requests per window (0 = disabled)
	Window   time.Duration // Time window for rate limiting
}

// RateLimitConfig returns the rate limiting configuration.
func (c *Config) RateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: c.RateLimitRequests,
		Window:   c.RateLimitWindow,
	}
}
