// ABOUTME: Maps collection names typed on the command line to repository calls.
// ABOUTME: Shared by list, delete, clear and watch.
package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/repository"
)

type collection string

const (
	collWeight     collection = "weight"
	collMedication collection = "medication"
	collOxygen     collection = "oxygen"
	collExercise   collection = "exercise"
	collWater      collection = "water"
	collFood       collection = "food"
)

var collectionNames = []string{"weight", "medication", "oxygen", "exercise", "water", "food"}

func parseCollection(s string) (collection, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "weight":
		return collWeight, nil
	case "medication", "med":
		return collMedication, nil
	case "oxygen", "spo2":
		return collOxygen, nil
	case "exercise":
		return collExercise, nil
	case "water":
		return collWater, nil
	case "food":
		return collFood, nil
	}
	return "", fmt.Errorf("unknown collection: %s\nValid collections: %s", s, strings.Join(collectionNames, ", "))
}

// periodQuery builds the query for a trailing period ending now. An empty
// period with all set matches every record.
func periodQuery(period, category string, limit int, all bool) (repository.Query, error) {
	q := repository.Query{Category: category, Limit: limit}
	if all && period == "" {
		return q, nil
	}
	r, err := repository.Trailing(period, time.Now())
	if err != nil {
		return q, err
	}
	q.Range = &r
	return q, nil
}

// rows lists c and renders each record as one line.
func rows(ctx context.Context, c collection, q repository.Query) ([]string, error) {
	var out []string
	switch c {
	case collWeight:
		recs, err := repo.Weights(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, w := range recs {
			goal := ""
			if w.IsGoal {
				goal = faint.Sprint(" (goal)")
			}
			out = append(out, line(w.ID, w.Date, fmt.Sprintf("%.1f kg%s", w.Weight, goal)))
		}
	case collMedication:
		recs, err := repo.Medications(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, m := range recs {
			out = append(out, line(m.ID, m.Date, fmt.Sprintf("%s %s %s %s", padRight(m.Name, 16), m.Dosage, m.Frequency, faint.Sprint(m.Type))))
		}
	case collOxygen:
		recs, err := repo.Oxygen(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, o := range recs {
			out = append(out, line(o.ID, o.Date, fmt.Sprintf("%.0f%%", o.Level)))
		}
	case collExercise:
		recs, err := repo.Exercises(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, e := range recs {
			out = append(out, line(e.ID, e.Date, fmt.Sprintf("%s %d min", padRight(e.Type, 16), e.Minutes)))
		}
	case collWater:
		recs, err := repo.Water(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, w := range recs {
			out = append(out, line(w.ID, w.Date, fmt.Sprintf("%d ml", w.Amount)))
		}
	case collFood:
		recs, err := repo.Foods(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, f := range recs {
			out = append(out, line(f.ID, f.Date, fmt.Sprintf("%s %s x%g %.0f kcal",
				padRight(truncate(f.Name, 24), 24), padRight(f.MealCategory, 9), f.Quantity, f.Calories)))
		}
	}
	return out, nil
}

func line(id, date int64, text string) string {
	return fmt.Sprintf("%s %s %s",
		faint.Sprint(padRight(fmt.Sprintf("#%d", id), 6)),
		faint.Sprint(models.FromMillis(date).Format("2006-01-02 15:04")),
		text)
}

func deleteRecord(ctx context.Context, c collection, id int64) error {
	switch c {
	case collWeight:
		return repo.DeleteWeight(ctx, id)
	case collMedication:
		return repo.DeleteMedication(ctx, id)
	case collOxygen:
		return repo.DeleteOxygen(ctx, id)
	case collExercise:
		return repo.DeleteExercise(ctx, id)
	case collWater:
		return repo.DeleteWater(ctx, id)
	default:
		return repo.DeleteFood(ctx, id)
	}
}

func clearRecords(ctx context.Context, c collection, q repository.Query) (int64, error) {
	switch c {
	case collWeight:
		return repo.ClearWeights(ctx, q)
	case collMedication:
		return repo.ClearMedications(ctx, q)
	case collOxygen:
		return repo.ClearOxygen(ctx, q)
	case collExercise:
		return repo.ClearExercises(ctx, q)
	case collWater:
		return repo.ClearWater(ctx, q)
	default:
		return repo.ClearFoods(ctx, q)
	}
}

// watchCounts streams the number of records in c matching q.
func watchCounts(ctx context.Context, c collection, q repository.Query) <-chan repository.Update[int] {
	switch c {
	case collWeight:
		return countOf(ctx, repo.WatchWeights(ctx, q))
	case collMedication:
		return countOf(ctx, repo.WatchMedications(ctx, q))
	case collOxygen:
		return countOf(ctx, repo.WatchOxygen(ctx, q))
	case collExercise:
		return countOf(ctx, repo.WatchExercises(ctx, q))
	case collWater:
		return countOf(ctx, repo.WatchWater(ctx, q))
	default:
		return countOf(ctx, repo.WatchFoods(ctx, q))
	}
}

func countOf[T any](ctx context.Context, in <-chan repository.Update[[]T]) <-chan repository.Update[int] {
	out := make(chan repository.Update[int])
	go func() {
		defer close(out)
		for u := range in {
			select {
			case out <- repository.Update[int]{Value: len(u.Value), Err: u.Err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func printRows(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func withLimit(q repository.Query, n int) repository.Query {
	q.Limit = n
	return q
}
