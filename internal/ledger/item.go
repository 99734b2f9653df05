// ABOUTME: Ledger items and their sort keys.
// ABOUTME: The key "<CATEGORY>#<date>#<localId>" makes re-syncing the same record idempotent.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/models"
)

// Item is one synced record in a patient's ledger.
type Item struct {
	PatientID string          `json:"patientId"`
	SortKey   string          `json:"sortKey"`
	Category  models.Category `json:"category"`
	Date      int64           `json:"date"`
	LocalID   int64           `json:"localId"`
	Data      json.RawMessage `json:"data"`
	SyncedAt  time.Time       `json:"syncedAt"`
}

// ItemStore persists ledger items.
type ItemStore interface {
	// PutItems blind-writes every item at (PatientID, SortKey).
	PutItems(ctx context.Context, items []Item) error
	// ListItems returns at most limit items of a patient in sort key order.
	ListItems(ctx context.Context, patientID string, limit int) ([]Item, error)
}

// SortKey builds the ledger key of a record.
func SortKey(category models.Category, date, localID int64) string {
	return fmt.Sprintf("%s#%d#%d", category, date, localID)
}

// ParseSortKey splits a sort key into its parts.
func ParseSortKey(key string) (models.Category, int64, int64, error) {
	parts := strings.Split(key, "#")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("malformed sort key %q", key)
	}
	if !models.IsValidCategory(parts[0]) {
		return "", 0, 0, fmt.Errorf("unknown category in sort key %q", key)
	}
	date, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad date in sort key %q: %w", key, err)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad id in sort key %q: %w", key, err)
	}
	return models.Category(parts[0]), date, id, nil
}

// NewItem encodes rec as a ledger item.
func NewItem(patientID string, category models.Category, rec models.Record, syncedAt time.Time) (Item, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return Item{}, fmt.Errorf("encode %s %d: %w", category, rec.RecordID(), err)
	}
	return Item{
		PatientID: patientID,
		SortKey:   SortKey(category, rec.RecordDate(), rec.RecordID()),
		Category:  category,
		Date:      rec.RecordDate(),
		LocalID:   rec.RecordID(),
		Data:      data,
		SyncedAt:  syncedAt,
	}, nil
}
