// ABOUTME: Device configuration for the health CLI.
// ABOUTME: Holds the data directory and sync timeout, stored as JSON under XDG_CONFIG_HOME.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/storage"
)

// DefaultSyncTimeout bounds one snapshot push when the config names none.
const DefaultSyncTimeout = 30 * time.Second

// Config stores health tool configuration.
type Config struct {
	// DataDir is the root directory for data storage; health.db lives here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/health.
	DataDir string `json:"data_dir,omitempty"`

	// SyncTimeoutSeconds bounds a sync push. Zero means DefaultSyncTimeout.
	SyncTimeoutSeconds int `json:"sync_timeout_seconds,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the path of the local database.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "health.db")
}

// SyncTimeout returns the configured sync timeout.
func (c *Config) SyncTimeout() time.Duration {
	if c.SyncTimeoutSeconds <= 0 {
		return DefaultSyncTimeout
	}
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// StoragePath returns the database path, preferring override when set.
func (c *Config) StoragePath(override string) string {
	if override != "" {
		return ExpandPath(override)
	}
	return c.DBPath()
}

// OpenStorage opens the local store, preferring override when set.
func (c *Config) OpenStorage(override string) (*storage.Store, error) {
	path := c.StoragePath(override)
	store, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return store, nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "health", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
