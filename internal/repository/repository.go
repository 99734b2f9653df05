// ABOUTME: Repository is the read/write surface the CLI, MCP server and sync client use.
// ABOUTME: Wraps the local store with calendar ranges, reactive streams and weight selection.
package repository

import (
	"context"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/storage"
)

// Repository exposes the local health data.
type Repository struct {
	store *storage.Store
}

// New wraps an open store.
func New(store *storage.Store) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying store.
func (r *Repository) Store() *storage.Store {
	return r.store
}

// Snapshot returns the full content of the six metric collections.
func (r *Repository) Snapshot(ctx context.Context) (*models.SyncBatch, error) {
	return r.store.Snapshot(ctx)
}

func (r *Repository) feed() *storage.Changefeed {
	return r.store.Changes()
}

// Weight

// SaveWeight inserts the weight entry, or replaces the one with its id.
func (r *Repository) SaveWeight(ctx context.Context, w *models.WeightEntry) error {
	return r.store.SaveWeight(ctx, w)
}

// DeleteWeight removes one weight entry by id.
func (r *Repository) DeleteWeight(ctx context.Context, id int64) error {
	return r.store.DeleteWeight(ctx, id)
}

// ClearWeights deletes the weight entries matching q and returns how many went.
func (r *Repository) ClearWeights(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteWeights(ctx, q.filter())
}

// Weights lists weight entries matching q, newest first.
func (r *Repository) Weights(ctx context.Context, q Query) ([]models.WeightEntry, error) {
	return r.store.ListWeights(ctx, q.filter())
}

// WatchWeights streams the weight entries matching q, re-queried after every change.
func (r *Repository) WatchWeights(ctx context.Context, q Query) <-chan Update[[]models.WeightEntry] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Weights},
		func(ctx context.Context) ([]models.WeightEntry, error) { return r.Weights(ctx, q) })
}

// CurrentWeight returns the latest non-goal weight, or nil when none exists.
func (r *Repository) CurrentWeight(ctx context.Context) (*models.WeightEntry, error) {
	return r.latestWeight(ctx, false)
}

// GoalWeight returns the latest goal weight, or nil when none exists.
func (r *Repository) GoalWeight(ctx context.Context) (*models.WeightEntry, error) {
	return r.latestWeight(ctx, true)
}

func (r *Repository) latestWeight(ctx context.Context, goal bool) (*models.WeightEntry, error) {
	all, err := r.store.ListWeights(ctx, storage.Filter{})
	if err != nil {
		return nil, err
	}
	return models.LatestWeight(all, goal), nil
}

// WatchCurrentWeight streams the latest non-goal weight.
func (r *Repository) WatchCurrentWeight(ctx context.Context) <-chan Update[*models.WeightEntry] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Weights}, r.CurrentWeight)
}

// Medication

// SaveMedication inserts the medication record, or replaces the one with its id.
func (r *Repository) SaveMedication(ctx context.Context, m *models.Medication) error {
	return r.store.SaveMedication(ctx, m)
}

// DeleteMedication removes one medication record by id.
func (r *Repository) DeleteMedication(ctx context.Context, id int64) error {
	return r.store.DeleteMedication(ctx, id)
}

// ClearMedications deletes the medication records matching q and returns how many went.
func (r *Repository) ClearMedications(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteMedications(ctx, q.filter())
}

// Medications lists medication records matching q, newest first.
func (r *Repository) Medications(ctx context.Context, q Query) ([]models.Medication, error) {
	return r.store.ListMedications(ctx, q.filter())
}

// WatchMedications streams the medication records matching q, re-queried after every change.
func (r *Repository) WatchMedications(ctx context.Context, q Query) <-chan Update[[]models.Medication] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Medications},
		func(ctx context.Context) ([]models.Medication, error) { return r.Medications(ctx, q) })
}

// Oxygen

// SaveOxygen inserts the oxygen reading, or replaces the one with its id.
func (r *Repository) SaveOxygen(ctx context.Context, o *models.OxygenReading) error {
	return r.store.SaveOxygen(ctx, o)
}

// DeleteOxygen removes one oxygen reading by id.
func (r *Repository) DeleteOxygen(ctx context.Context, id int64) error {
	return r.store.DeleteOxygen(ctx, id)
}

// ClearOxygen deletes the oxygen readings matching q and returns how many went.
func (r *Repository) ClearOxygen(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteOxygenReadings(ctx, q.filter())
}

// Oxygen lists oxygen readings matching q, newest first.
func (r *Repository) Oxygen(ctx context.Context, q Query) ([]models.OxygenReading, error) {
	return r.store.ListOxygen(ctx, q.filter())
}

// WatchOxygen streams the oxygen readings matching q, re-queried after every change.
func (r *Repository) WatchOxygen(ctx context.Context, q Query) <-chan Update[[]models.OxygenReading] {
	return watch(ctx, r.feed(), []storage.Collection{storage.OxygenReadings},
		func(ctx context.Context) ([]models.OxygenReading, error) { return r.Oxygen(ctx, q) })
}

// Exercise

// SaveExercise inserts the exercise entry, or replaces the one with its id.
func (r *Repository) SaveExercise(ctx context.Context, e *models.ExerciseEntry) error {
	return r.store.SaveExercise(ctx, e)
}

// DeleteExercise removes one exercise entry by id.
func (r *Repository) DeleteExercise(ctx context.Context, id int64) error {
	return r.store.DeleteExercise(ctx, id)
}

// ClearExercises deletes the exercise entries matching q and returns how many went.
func (r *Repository) ClearExercises(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteExercises(ctx, q.filter())
}

// Exercises lists exercise entries matching q, newest first.
func (r *Repository) Exercises(ctx context.Context, q Query) ([]models.ExerciseEntry, error) {
	return r.store.ListExercises(ctx, q.filter())
}

// WatchExercises streams the exercise entries matching q, re-queried after every change.
func (r *Repository) WatchExercises(ctx context.Context, q Query) <-chan Update[[]models.ExerciseEntry] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Exercises},
		func(ctx context.Context) ([]models.ExerciseEntry, error) { return r.Exercises(ctx, q) })
}

// Water

// SaveWater inserts the water entry, or replaces the one with its id.
func (r *Repository) SaveWater(ctx context.Context, w *models.WaterEntry) error {
	return r.store.SaveWater(ctx, w)
}

// DeleteWater removes one water entry by id.
func (r *Repository) DeleteWater(ctx context.Context, id int64) error {
	return r.store.DeleteWater(ctx, id)
}

// ClearWater deletes the water entries matching q and returns how many went.
func (r *Repository) ClearWater(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteWaterEntries(ctx, q.filter())
}

// Water lists water entries matching q, newest first.
func (r *Repository) Water(ctx context.Context, q Query) ([]models.WaterEntry, error) {
	return r.store.ListWater(ctx, q.filter())
}

// WatchWater streams the water entries matching q, re-queried after every change.
func (r *Repository) WatchWater(ctx context.Context, q Query) <-chan Update[[]models.WaterEntry] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Water},
		func(ctx context.Context) ([]models.WaterEntry, error) { return r.Water(ctx, q) })
}

// Food

// SaveFood inserts the food entry, or replaces the one with its id.
func (r *Repository) SaveFood(ctx context.Context, f *models.FoodEntry) error {
	return r.store.SaveFood(ctx, f)
}

// DeleteFood removes one food entry by id.
func (r *Repository) DeleteFood(ctx context.Context, id int64) error {
	return r.store.DeleteFood(ctx, id)
}

// ClearFoods deletes the food entries matching q and returns how many went.
func (r *Repository) ClearFoods(ctx context.Context, q Query) (int64, error) {
	return r.store.DeleteFoods(ctx, q.filter())
}

// Foods lists food entries matching q, newest first.
func (r *Repository) Foods(ctx context.Context, q Query) ([]models.FoodEntry, error) {
	return r.store.ListFoods(ctx, q.filter())
}

// WatchFoods streams the food entries matching q, re-queried after every change.
func (r *Repository) WatchFoods(ctx context.Context, q Query) <-chan Update[[]models.FoodEntry] {
	return watch(ctx, r.feed(), []storage.Collection{storage.Foods},
		func(ctx context.Context) ([]models.FoodEntry, error) { return r.Foods(ctx, q) })
}
