// ABOUTME: Shared test helpers for storage tests.
// ABOUTME: Provides setupTestStore and date helpers for isolated store instances.
package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// at returns the epoch-millisecond date for 2024-01-<day> <hour>:00 local time.
func at(day, hour int) int64 {
	return models.Millis(time.Date(2024, time.January, day, hour, 0, 0, 0, time.Local))
}
