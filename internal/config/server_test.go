// ABOUTME: Tests for the ledger server configuration.
// ABOUTME: Covers viper defaults, environment overrides and validation rules.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "badger", cfg.LedgerBackend)
	assert.Equal(t, "custom:role", cfg.AuthRoleClaim)
	assert.Equal(t, "10M", cfg.BodyLimit)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "postgres", cfg.LedgerBackend)
	assert.Equal(t, "postgres://localhost/ledger", cfg.DatabaseURL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadServerFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("METRICS_ADDR=:9100\nAUTH_ISSUER=https://issuer.example\n"), 0600))

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "https://issuer.example", cfg.AuthIssuer)
}

func TestLoadServerMissingEnvFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func validServer() *ServerConfig {
	return &ServerConfig{
		Env:            "production",
		LedgerBackend:  "badger",
		LedgerDataDir:  "/var/lib/healthlink",
		AuthJWKSURL:    "https://issuer.example/jwks",
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

func TestServerValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ServerConfig)
		wantErr string
	}{
		{"valid", func(c *ServerConfig) {}, ""},
		{"dev key outside development", func(c *ServerConfig) { c.AuthDevKey = "k" }, "only allowed"},
		{"dev key in development", func(c *ServerConfig) {
			c.Env = "development"
			c.AuthJWKSURL = ""
			c.AuthDevKey = "k"
		}, ""},
		{"no auth source", func(c *ServerConfig) { c.AuthJWKSURL = "" }, "AUTH_JWKS_URL"},
		{"badger without dir", func(c *ServerConfig) { c.LedgerDataDir = "" }, "LEDGER_DATA_DIR"},
		{"postgres without url", func(c *ServerConfig) { c.LedgerBackend = "postgres" }, "DATABASE_URL"},
		{"unknown backend", func(c *ServerConfig) { c.LedgerBackend = "dynamo" }, "LEDGER_BACKEND"},
		{"zero rate", func(c *ServerConfig) { c.RateLimitRPS = 0 }, "RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServer()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJWKSURLFromIssuer(t *testing.T) {
	cfg := &ServerConfig{AuthIssuer: "https://issuer.example/pool/"}
	assert.Equal(t, "https://issuer.example/pool/.well-known/jwks.json", cfg.JWKSURL())

	cfg.AuthJWKSURL = "https://keys.example"
	assert.Equal(t, "https://keys.example", cfg.JWKSURL())

	assert.Empty(t, (&ServerConfig{}).JWKSURL())
}
