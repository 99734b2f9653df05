// ABOUTME: Server configuration for the healthlink ledger API.
// ABOUTME: Loaded with viper from .env and the environment, then validated before startup.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures cmd/healthlink.
type ServerConfig struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LedgerBackend   string        `mapstructure:"LEDGER_BACKEND"`
	LedgerDataDir   string        `mapstructure:"LEDGER_DATA_DIR"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthDevKey      string        `mapstructure:"AUTH_DEV_SIGNING_KEY"`
	AuthRoleClaim   string        `mapstructure:"AUTH_ROLE_CLAIM"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	MetricsAddr     string        `mapstructure:"METRICS_ADDR"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var serverKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LEDGER_BACKEND", "LEDGER_DATA_DIR",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_DEV_SIGNING_KEY", "AUTH_ROLE_CLAIM",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "METRICS_ADDR", "SHUTDOWN_TIMEOUT",
}

// LoadServer reads the server configuration. envFile may be empty.
func LoadServer(envFile string) (*ServerConfig, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LEDGER_BACKEND", "badger")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTH_ROLE_CLAIM", "custom:role")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, k := range serverKeys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine.
	if envFile != "" {
		_ = v.ReadInConfig()
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *ServerConfig) IsDev() bool {
	return c.Env == "development"
}

// Validate refuses configurations that would run without real token checks
// or without a usable ledger backend.
func (c *ServerConfig) Validate() error {
	if c.AuthDevKey != "" && !c.IsDev() {
		return fmt.Errorf("AUTH_DEV_SIGNING_KEY is only allowed when ENV=development")
	}
	if c.AuthDevKey == "" && c.AuthJWKSURL == "" && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_JWKS_URL or AUTH_ISSUER must be set")
	}

	switch c.LedgerBackend {
	case "badger":
		if c.LedgerDataDir == "" && !c.IsDev() {
			return fmt.Errorf("LEDGER_DATA_DIR is required for the badger backend outside development")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be \"badger\" or \"postgres\", got %q", c.LedgerBackend)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// JWKSURL returns the key set location, derived from the issuer when not set.
func (c *ServerConfig) JWKSURL() string {
	if c.AuthJWKSURL != "" {
		return c.AuthJWKSURL
	}
	if c.AuthIssuer == "" {
		return ""
	}
	return strings.TrimRight(c.AuthIssuer, "/") + "/.well-known/jwks.json"
}
