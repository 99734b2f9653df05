// ABOUTME: RemoteLedger turns sync batches into ledger items and builds doctor overviews.
// ABOUTME: Sync is a blind put with no reads; Overview reads one bounded page after authorization.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/harperreed/healthlink/internal/apperr"
	"github.com/harperreed/healthlink/internal/models"
)

// OverviewPageSize caps how many items an overview reads.
const OverviewPageSize = 1000

// Authorizer decides whether doctorID may read patientID.
type Authorizer interface {
	Authorize(ctx context.Context, doctorID, patientID string) error
}

// Overview summarizes a patient's ledger for a doctor.
type Overview struct {
	PatientID    string                  `json:"patientId"`
	LatestWeight *models.WeightEntry     `json:"latestWeight"`
	GoalWeight   *models.WeightEntry     `json:"goalWeight"`
	Summary      map[models.Category]int `json:"summary"`
	Truncated    bool                    `json:"truncated"`
}

// Ledger is the cloud side of sync.
type Ledger struct {
	items    ItemStore
	gate     Authorizer
	now      func() time.Time
	pageSize int
}

// New creates a ledger.
func New(items ItemStore, gate Authorizer) *Ledger {
	return &Ledger{items: items, gate: gate, now: time.Now, pageSize: OverviewPageSize}
}

// Sync writes every record of batch into the patient's ledger and returns
// the number written per category.
func (l *Ledger) Sync(ctx context.Context, patientID string, batch *models.SyncBatch) (map[models.Category]int, error) {
	if patientID == "" {
		return nil, apperr.Auth("Missing or invalid token")
	}
	if batch == nil {
		return nil, apperr.Validation("Invalid sync payload")
	}

	now := l.now().UTC()
	items := make([]Item, 0, batch.Len())
	add := func(cat models.Category, rec models.Record) error {
		it, err := NewItem(patientID, cat, rec, now)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}

	for _, r := range batch.Weights {
		if err := add(models.CategoryWeight, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}
	for _, r := range batch.Medications {
		if err := add(models.CategoryMed, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}
	for _, r := range batch.Oxygen {
		if err := add(models.CategoryOxygen, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}
	for _, r := range batch.Exercises {
		if err := add(models.CategoryExercise, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}
	for _, r := range batch.Water {
		if err := add(models.CategoryWater, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}
	for _, r := range batch.Foods {
		if err := add(models.CategoryFood, r); err != nil {
			return nil, apperr.Internal("encode item", err)
		}
	}

	if len(items) > 0 {
		if err := l.items.PutItems(ctx, items); err != nil {
			return nil, apperr.Internal("put items", err)
		}
	}
	return batch.Counts(), nil
}

// Overview authorizes doctorID, then summarizes one page of the patient's items.
func (l *Ledger) Overview(ctx context.Context, doctorID, patientID string) (*Overview, error) {
	if err := l.gate.Authorize(ctx, doctorID, patientID); err != nil {
		return nil, err
	}

	items, err := l.items.ListItems(ctx, patientID, l.pageSize)
	if err != nil {
		return nil, apperr.Internal("list items", err)
	}

	out := &Overview{
		PatientID: patientID,
		Summary:   make(map[models.Category]int, len(models.AllCategories)),
		Truncated: len(items) >= l.pageSize,
	}
	for _, c := range models.AllCategories {
		out.Summary[c] = 0
	}

	var weights []models.WeightEntry
	for _, it := range items {
		out.Summary[it.Category]++
		if it.Category != models.CategoryWeight {
			continue
		}
		var w models.WeightEntry
		if err := json.Unmarshal(it.Data, &w); err != nil {
			continue
		}
		weights = append(weights, w)
	}
	out.LatestWeight = models.LatestWeight(weights, false)
	out.GoalWeight = models.LatestWeight(weights, true)
	return out, nil
}
