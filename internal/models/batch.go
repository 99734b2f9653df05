// ABOUTME: Snapshot batch pushed from the device to the remote ledger.
// ABOUTME: One array per collection, serialized as the POST /sync body.
package models

// SyncBatch is the full content of all six collections.
type SyncBatch struct {
	Weights     []WeightEntry   `json:"weights"`
	Medications []Medication    `json:"medications"`
	Oxygen      []OxygenReading `json:"oxygen"`
	Exercises   []ExerciseEntry `json:"exercises"`
	Water       []WaterEntry    `json:"water"`
	Foods       []FoodEntry     `json:"foods"`
}

// Counts returns the number of records per category.
func (b *SyncBatch) Counts() map[Category]int {
	return map[Category]int{
		CategoryWeight:   len(b.Weights),
		CategoryMed:      len(b.Medications),
		CategoryOxygen:   len(b.Oxygen),
		CategoryExercise: len(b.Exercises),
		CategoryWater:    len(b.Water),
		CategoryFood:     len(b.Foods),
	}
}

// Len returns the total number of records in the batch.
func (b *SyncBatch) Len() int {
	n := 0
	for _, c := range b.Counts() {
		n += c
	}
	return n
}
