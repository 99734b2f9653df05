// ABOUTME: Per-day aggregates for the dashboard style summaries.
// ABOUTME: Sums water, exercise minutes and food nutrients inside a day range.
package repository

import (
	"context"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/storage"
)

// DayTotals summarizes one calendar day.
type DayTotals struct {
	Day             Range            `json:"-"`
	WaterML         int              `json:"waterMl"`
	ExerciseMinutes int              `json:"exerciseMinutes"`
	FoodCount       int              `json:"foodCount"`
	Nutrients       models.Nutrients `json:"nutrients"`
	Medications     int              `json:"medications"`
}

// DayTotals aggregates the day containing t.
func (r *Repository) DayTotals(ctx context.Context, t time.Time) (*DayTotals, error) {
	day := DayRange(t)
	q := In(day)
	out := &DayTotals{Day: day}

	water, err := r.Water(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, w := range water {
		out.WaterML += w.Amount
	}

	exercises, err := r.Exercises(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, e := range exercises {
		out.ExerciseMinutes += e.Minutes
	}

	foods, err := r.Foods(ctx, q)
	if err != nil {
		return nil, err
	}
	out.FoodCount = len(foods)
	for _, f := range foods {
		out.Nutrients.Add(f.Nutrients)
	}

	meds, err := r.Medications(ctx, q)
	if err != nil {
		return nil, err
	}
	out.Medications = len(meds)

	return out, nil
}

// WatchDayTotals streams the totals for the day containing t.
func (r *Repository) WatchDayTotals(ctx context.Context, t time.Time) <-chan Update[*DayTotals] {
	colls := []storage.Collection{storage.Water, storage.Exercises, storage.Foods, storage.Medications}
	return watch(ctx, r.feed(), colls, func(ctx context.Context) (*DayTotals, error) {
		return r.DayTotals(ctx, t)
	})
}
