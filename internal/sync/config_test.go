// ABOUTME: Tests for sync configuration management.
// ABOUTME: Verifies LoadConfig, SaveConfig, token validity, and device ID generation.

package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigNoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "", cfg.Server)
	assert.Equal(t, "", cfg.Token)
	assert.False(t, cfg.IsConfigured())
}

func TestSaveAndLoadConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{
		Server:         "https://test.example.com",
		Token:          "test-token-abc",
		TokenExpires:   "2025-12-31T23:59:59Z",
		DeviceID:       "device-123",
		TimeoutSeconds: 10,
	}
	require.NoError(t, SaveConfig(cfg))
	assert.FileExists(t, ConfigPath())

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigRejectsCorruptFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(ConfigDir(), 0750))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("{"), 0600))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigDirXDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	assert.Equal(t, filepath.Join(tmpDir, "health"), ConfigDir())
	assert.Equal(t, filepath.Join(tmpDir, "health", "sync.json"), ConfigPath())
}

func TestConfigDirFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".config", "health"), ConfigDir())
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, (&Config{Server: "https://x", Token: "t"}).IsConfigured())
	assert.False(t, (&Config{Server: "https://x"}).IsConfigured())
	assert.False(t, (&Config{Token: "t"}).IsConfigured())
}

func TestHasValidToken(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"no token", Config{}, false},
		{"no expiry", Config{Token: "t"}, true},
		{"future expiry", Config{Token: "t", TokenExpires: "2025-06-01T13:00:00Z"}, true},
		{"past expiry", Config{Token: "t", TokenExpires: "2025-06-01T11:00:00Z"}, false},
		{"exact expiry", Config{Token: "t", TokenExpires: "2025-06-01T12:00:00Z"}, false},
		{"garbage expiry", Config{Token: "t", TokenExpires: "tomorrow"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.HasValidToken(now))
			if tt.want {
				assert.Equal(t, "t", tt.cfg.ActiveToken(now))
			} else {
				assert.Empty(t, tt.cfg.ActiveToken(now))
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, (&Config{}).Timeout())
	assert.Equal(t, 5*time.Second, (&Config{TimeoutSeconds: 5}).Timeout())
}

func TestGenerateDeviceID(t *testing.T) {
	deviceID1 := GenerateDeviceID()
	deviceID2 := GenerateDeviceID()

	assert.NotEmpty(t, deviceID1)
	assert.NotEqual(t, deviceID1, deviceID2)

	// ULID format
	assert.Len(t, deviceID1, 26)
}

func TestClearConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, SaveConfig(&Config{Server: "https://test.example.com", Token: "test-token"}))
	assert.FileExists(t, ConfigPath())

	require.NoError(t, ClearConfig())
	assert.NoFileExists(t, ConfigPath())

	require.NoError(t, ClearConfig())
}
