// ABOUTME: Sync configuration for pushing snapshots to the cloud ledger.
// ABOUTME: Stores server URL, bearer token with its expiry, and the device id.
package sync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTimeout bounds one sync request when the config does not set one.
const DefaultTimeout = 30 * time.Second

// Config stores sync settings.
type Config struct {
	Server         string `json:"server"`
	Token          string `json:"token"`
	TokenExpires   string `json:"token_expires,omitempty"`
	DeviceID       string `json:"device_id"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// ConfigDir returns the XDG config directory for health sync.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "health")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "health")
}

// ConfigPath returns the path to the sync config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "sync.json")
}

// LoadConfig loads sync config from disk. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig persists sync config to disk.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0600)
}

// IsConfigured returns true if a server and a token are set.
func (c *Config) IsConfigured() bool {
	return c.Server != "" && c.Token != ""
}

// HasValidToken reports whether the token is set and not expired at now.
// An unparseable expiry counts as expired.
func (c *Config) HasValidToken(now time.Time) bool {
	if c.Token == "" {
		return false
	}
	if c.TokenExpires == "" {
		return true
	}
	exp, err := time.Parse(time.RFC3339, c.TokenExpires)
	if err != nil {
		return false
	}
	return now.Before(exp)
}

// ActiveToken returns the token when it is valid at now, else "".
func (c *Config) ActiveToken(now time.Time) string {
	if !c.HasValidToken(now) {
		return ""
	}
	return c.Token
}

// Timeout returns the per-sync deadline.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerateDeviceID creates a new unique device ID.
func GenerateDeviceID() string {
	return ulid.Make().String()
}

// ClearConfig removes sync config file.
func ClearConfig() error {
	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}
