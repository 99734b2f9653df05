// ABOUTME: Metric record types for the six on-device health collections.
// ABOUTME: Weight, medication, oxygen, exercise, water and food entries keyed by local id and epoch-ms date.
package models

import (
	"fmt"
	"time"
)

// Category names a record collection on the remote ledger.
type Category string

const (
	CategoryWeight   Category = "WEIGHT"
	CategoryMed      Category = "MED"
	CategoryOxygen   Category = "OXYGEN"
	CategoryExercise Category = "EXERCISE"
	CategoryWater    Category = "WATER"
	CategoryFood     Category = "FOOD"
)

// AllCategories lists every ledger category in display order.
var AllCategories = []Category{
	CategoryWeight,
	CategoryMed,
	CategoryOxygen,
	CategoryExercise,
	CategoryWater,
	CategoryFood,
}

// IsValidCategory reports whether s names a ledger category.
func IsValidCategory(s string) bool {
	for _, c := range AllCategories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Record is implemented by every metric record.
type Record interface {
	RecordID() int64
	RecordDate() int64
}

// MedicationType distinguishes maintenance from flare-up medication.
type MedicationType string

const (
	MedicationDaily        MedicationType = "daily"
	MedicationExacerbation MedicationType = "exacerbation"
)

// IsValidMedicationType reports whether s is a known medication type.
func IsValidMedicationType(s string) bool {
	return s == string(MedicationDaily) || s == string(MedicationExacerbation)
}

// WeightEntry is a body weight measurement or a goal weight.
type WeightEntry struct {
	ID     int64   `json:"id" yaml:"id"`
	Date   int64   `json:"date" yaml:"date"`
	Weight float64 `json:"weight" yaml:"weight"`
	IsGoal bool    `json:"isGoal" yaml:"is_goal"`
}

// Medication is a medication dose record.
type Medication struct {
	ID        int64          `json:"id" yaml:"id"`
	Date      int64          `json:"date" yaml:"date"`
	Name      string         `json:"name" yaml:"name"`
	Dosage    string         `json:"dosage" yaml:"dosage"`
	Frequency string         `json:"frequency" yaml:"frequency"`
	Type      MedicationType `json:"type" yaml:"type"`
}

// OxygenReading is a blood oxygen saturation reading in percent.
type OxygenReading struct {
	ID    int64   `json:"id" yaml:"id"`
	Date  int64   `json:"date" yaml:"date"`
	Level float64 `json:"level" yaml:"level"`
}

// ExerciseEntry is an exercise session.
type ExerciseEntry struct {
	ID      int64  `json:"id" yaml:"id"`
	Date    int64  `json:"date" yaml:"date"`
	Type    string `json:"type" yaml:"type"`
	Minutes int    `json:"minutes" yaml:"minutes"`
}

// WaterEntry is water intake in millilitres.
type WaterEntry struct {
	ID     int64 `json:"id" yaml:"id"`
	Date   int64 `json:"date" yaml:"date"`
	Amount int   `json:"amount" yaml:"amount"`
}

// FoodEntry is a logged food with its nutrient breakdown.
type FoodEntry struct {
	ID           int64   `json:"id" yaml:"id"`
	Date         int64   `json:"date" yaml:"date"`
	Name         string  `json:"name" yaml:"name"`
	MealCategory string  `json:"mealCategory" yaml:"meal_category"`
	Quantity     float64 `json:"quantity" yaml:"quantity"`
	Nutrients    `yaml:",inline"`
}

func (w WeightEntry) RecordID() int64     { return w.ID }
func (w WeightEntry) RecordDate() int64   { return w.Date }
func (m Medication) RecordID() int64      { return m.ID }
func (m Medication) RecordDate() int64    { return m.Date }
func (o OxygenReading) RecordID() int64   { return o.ID }
func (o OxygenReading) RecordDate() int64 { return o.Date }
func (e ExerciseEntry) RecordID() int64   { return e.ID }
func (e ExerciseEntry) RecordDate() int64 { return e.Date }
func (w WaterEntry) RecordID() int64      { return w.ID }
func (w WaterEntry) RecordDate() int64    { return w.Date }
func (f FoodEntry) RecordID() int64       { return f.ID }
func (f FoodEntry) RecordDate() int64     { return f.Date }

// Millis converts t to the epoch-millisecond form used for record dates.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts an epoch-millisecond date to local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Validate checks a medication before it is stored.
func (m *Medication) Validate() error {
	if m.Date == 0 {
		return fmt.Errorf("medication date is required")
	}
	if m.Name == "" {
		return fmt.Errorf("medication name is required")
	}
	if !IsValidMedicationType(string(m.Type)) {
		return fmt.Errorf("unknown medication type: %q", m.Type)
	}
	return nil
}

// Validate checks an exercise entry before it is stored.
func (e *ExerciseEntry) Validate() error {
	if e.Date == 0 {
		return fmt.Errorf("exercise date is required")
	}
	if e.Minutes < 0 {
		return fmt.Errorf("exercise minutes cannot be negative")
	}
	return nil
}

// Validate checks a water entry before it is stored.
func (w *WaterEntry) Validate() error {
	if w.Date == 0 {
		return fmt.Errorf("water date is required")
	}
	if w.Amount < 0 {
		return fmt.Errorf("water amount cannot be negative")
	}
	return nil
}
