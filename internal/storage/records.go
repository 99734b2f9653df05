// ABOUTME: Store operations for the six metric collections.
// ABOUTME: Save (insert or replace by id), delete by id, delete by filter and filtered lists.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/healthlink/internal/models"
)

const recordOrder = "date DESC, id DESC"

var weightsTable = table[models.WeightEntry]{
	name:    Weights,
	columns: []string{"date", "weight", "is_goal"},
	dateCol: "date",
	orderBy: recordOrder,
	values:  func(w *models.WeightEntry) []any { return []any{w.Date, w.Weight, w.IsGoal} },
	dest:    func(w *models.WeightEntry) []any { return []any{&w.ID, &w.Date, &w.Weight, &w.IsGoal} },
	id:      func(w *models.WeightEntry) *int64 { return &w.ID },
	validate: func(w *models.WeightEntry) error {
		if w.Weight <= 0 {
			return fmt.Errorf("weight must be positive")
		}
		return requireDate(w.Date, "weight")
	},
}

var medicationsTable = table[models.Medication]{
	name:        Medications,
	columns:     []string{"date", "name", "dosage", "frequency", "type"},
	categoryCol: "type",
	dateCol:     "date",
	orderBy:     recordOrder,
	values: func(m *models.Medication) []any {
		return []any{m.Date, m.Name, m.Dosage, m.Frequency, string(m.Type)}
	},
	dest: func(m *models.Medication) []any {
		return []any{&m.ID, &m.Date, &m.Name, &m.Dosage, &m.Frequency, &m.Type}
	},
	id:       func(m *models.Medication) *int64 { return &m.ID },
	validate: func(m *models.Medication) error { return m.Validate() },
}

var oxygenTable = table[models.OxygenReading]{
	name:    OxygenReadings,
	columns: []string{"date", "level"},
	dateCol: "date",
	orderBy: recordOrder,
	values:  func(o *models.OxygenReading) []any { return []any{o.Date, o.Level} },
	dest:    func(o *models.OxygenReading) []any { return []any{&o.ID, &o.Date, &o.Level} },
	id:      func(o *models.OxygenReading) *int64 { return &o.ID },
	validate: func(o *models.OxygenReading) error {
		if o.Level < 0 || o.Level > 100 {
			return fmt.Errorf("oxygen level must be between 0 and 100")
		}
		return requireDate(o.Date, "oxygen")
	},
}

var exercisesTable = table[models.ExerciseEntry]{
	name:        Exercises,
	columns:     []string{"date", "type", "minutes"},
	categoryCol: "type",
	dateCol:     "date",
	orderBy:     recordOrder,
	values:      func(e *models.ExerciseEntry) []any { return []any{e.Date, e.Type, e.Minutes} },
	dest:        func(e *models.ExerciseEntry) []any { return []any{&e.ID, &e.Date, &e.Type, &e.Minutes} },
	id:          func(e *models.ExerciseEntry) *int64 { return &e.ID },
	validate:    func(e *models.ExerciseEntry) error { return e.Validate() },
}

var waterTable = table[models.WaterEntry]{
	name:     Water,
	columns:  []string{"date", "amount"},
	dateCol:  "date",
	orderBy:  recordOrder,
	values:   func(w *models.WaterEntry) []any { return []any{w.Date, w.Amount} },
	dest:     func(w *models.WaterEntry) []any { return []any{&w.ID, &w.Date, &w.Amount} },
	id:       func(w *models.WaterEntry) *int64 { return &w.ID },
	validate: func(w *models.WaterEntry) error { return w.Validate() },
}

var foodsTable = table[models.FoodEntry]{
	name:        Foods,
	columns:     append([]string{"date", "name", "meal_category", "quantity"}, models.NutrientColumns()...),
	categoryCol: "meal_category",
	dateCol:     "date",
	orderBy:     recordOrder,
	values: func(f *models.FoodEntry) []any {
		return append([]any{f.Date, f.Name, f.MealCategory, f.Quantity}, nutrientValues(&f.Nutrients)...)
	},
	dest: func(f *models.FoodEntry) []any {
		return append([]any{&f.ID, &f.Date, &f.Name, &f.MealCategory, &f.Quantity}, nutrientDest(&f.Nutrients)...)
	},
	id: func(f *models.FoodEntry) *int64 { return &f.ID },
	validate: func(f *models.FoodEntry) error {
		if f.Name == "" {
			return fmt.Errorf("food name is required")
		}
		return requireDate(f.Date, "food")
	},
}

// SaveWeight inserts w, or replaces the row with w.ID when it is set.
func (s *Store) SaveWeight(ctx context.Context, w *models.WeightEntry) error {
	return s.write(ctx, func(tx *sql.Tx) error { return weightsTable.save(ctx, tx, w) }, Weights)
}

// DeleteWeight removes one weight entry.
func (s *Store) DeleteWeight(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return weightsTable.deleteByID(ctx, tx, id) }, Weights)
}

// DeleteWeights removes every weight entry matching f and returns the count.
func (s *Store) DeleteWeights(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, weightsTable, f)
}

// ListWeights returns weight entries matching f, newest first.
func (s *Store) ListWeights(ctx context.Context, f Filter) ([]models.WeightEntry, error) {
	return weightsTable.list(ctx, s.db, f)
}

// SaveMedication inserts m, or replaces the row with m.ID when it is set.
func (s *Store) SaveMedication(ctx context.Context, m *models.Medication) error {
	return s.write(ctx, func(tx *sql.Tx) error { return medicationsTable.save(ctx, tx, m) }, Medications)
}

// DeleteMedication removes one medication record.
func (s *Store) DeleteMedication(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return medicationsTable.deleteByID(ctx, tx, id) }, Medications)
}

// DeleteMedications removes medication records matching f (Category is the medication type).
func (s *Store) DeleteMedications(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, medicationsTable, f)
}

// ListMedications returns medication records matching f, newest first.
func (s *Store) ListMedications(ctx context.Context, f Filter) ([]models.Medication, error) {
	return medicationsTable.list(ctx, s.db, f)
}

// SaveOxygen inserts o, or replaces the row with o.ID when it is set.
func (s *Store) SaveOxygen(ctx context.Context, o *models.OxygenReading) error {
	return s.write(ctx, func(tx *sql.Tx) error { return oxygenTable.save(ctx, tx, o) }, OxygenReadings)
}

// DeleteOxygen removes one oxygen reading.
func (s *Store) DeleteOxygen(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return oxygenTable.deleteByID(ctx, tx, id) }, OxygenReadings)
}

// DeleteOxygenReadings removes oxygen readings matching f.
func (s *Store) DeleteOxygenReadings(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, oxygenTable, f)
}

// ListOxygen returns oxygen readings matching f, newest first.
func (s *Store) ListOxygen(ctx context.Context, f Filter) ([]models.OxygenReading, error) {
	return oxygenTable.list(ctx, s.db, f)
}

// SaveExercise inserts e, or replaces the row with e.ID when it is set.
func (s *Store) SaveExercise(ctx context.Context, e *models.ExerciseEntry) error {
	return s.write(ctx, func(tx *sql.Tx) error { return exercisesTable.save(ctx, tx, e) }, Exercises)
}

// DeleteExercise removes one exercise entry.
func (s *Store) DeleteExercise(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return exercisesTable.deleteByID(ctx, tx, id) }, Exercises)
}

// DeleteExercises removes exercise entries matching f (Category is the exercise type).
func (s *Store) DeleteExercises(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, exercisesTable, f)
}

// ListExercises returns exercise entries matching f, newest first.
func (s *Store) ListExercises(ctx context.Context, f Filter) ([]models.ExerciseEntry, error) {
	return exercisesTable.list(ctx, s.db, f)
}

// SaveWater inserts w, or replaces the row with w.ID when it is set.
func (s *Store) SaveWater(ctx context.Context, w *models.WaterEntry) error {
	return s.write(ctx, func(tx *sql.Tx) error { return waterTable.save(ctx, tx, w) }, Water)
}

// DeleteWater removes one water entry.
func (s *Store) DeleteWater(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return waterTable.deleteByID(ctx, tx, id) }, Water)
}

// DeleteWaterEntries removes water entries matching f.
func (s *Store) DeleteWaterEntries(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, waterTable, f)
}

// ListWater returns water entries matching f, newest first.
func (s *Store) ListWater(ctx context.Context, f Filter) ([]models.WaterEntry, error) {
	return waterTable.list(ctx, s.db, f)
}

// SaveFood inserts f, or replaces the row with f.ID when it is set.
func (s *Store) SaveFood(ctx context.Context, f *models.FoodEntry) error {
	return s.write(ctx, func(tx *sql.Tx) error { return foodsTable.save(ctx, tx, f) }, Foods)
}

// SaveFoods inserts every entry in one transaction.
func (s *Store) SaveFoods(ctx context.Context, entries []models.FoodEntry) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		for i := range entries {
			if err := foodsTable.save(ctx, tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	}, Foods)
}

// DeleteFood removes one food entry.
func (s *Store) DeleteFood(ctx context.Context, id int64) error {
	return s.write(ctx, func(tx *sql.Tx) error { return foodsTable.deleteByID(ctx, tx, id) }, Foods)
}

// DeleteFoods removes food entries matching f (Category is the meal category).
func (s *Store) DeleteFoods(ctx context.Context, f Filter) (int64, error) {
	return deleteMatching(ctx, s, foodsTable, f)
}

// ListFoods returns food entries matching f, newest first.
func (s *Store) ListFoods(ctx context.Context, f Filter) ([]models.FoodEntry, error) {
	return foodsTable.list(ctx, s.db, f)
}

func deleteMatching[T any](ctx context.Context, s *Store, t table[T], f Filter) (int64, error) {
	var n int64
	err := s.write(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = t.deleteWhere(ctx, tx, f)
		return err
	}, t.name)
	return n, err
}

// Snapshot reads the full content of all six collections in one read transaction.
func (s *Store) Snapshot(ctx context.Context) (*models.SyncBatch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var b models.SyncBatch
	all := Filter{}
	if b.Weights, err = weightsTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	if b.Medications, err = medicationsTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	if b.Oxygen, err = oxygenTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	if b.Exercises, err = exercisesTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	if b.Water, err = waterTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	if b.Foods, err = foodsTable.list(ctx, tx, all); err != nil {
		return nil, err
	}
	return &b, nil
}
