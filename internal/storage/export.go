// ABOUTME: Export and import functionality for local health data.
// ABOUTME: Supports JSON (restorable), YAML, and Markdown export formats.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for health data.
type ExportData struct {
	Version        string                 `json:"version" yaml:"version"`
	ExportedAt     time.Time              `json:"exported_at" yaml:"exported_at"`
	Tool           string                 `json:"tool" yaml:"tool"`
	SchemaVersion  int                    `json:"schema_version" yaml:"schema_version"`
	Records        models.SyncBatch       `json:"records" yaml:"records"`
	FavoriteFoods  []models.FavoriteFood  `json:"favorite_foods" yaml:"favorite_foods"`
	FavoriteMeals  []models.FavoriteMeal  `json:"favorite_meals" yaml:"favorite_meals"`
	UserAddedFoods []models.UserAddedFood `json:"user_added_foods" yaml:"user_added_foods"`
}

// GetAllData retrieves all data for export.
func (s *Store) GetAllData(ctx context.Context) (*ExportData, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	foods, err := s.ListFavoriteFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorite foods: %w", err)
	}
	meals, err := s.ListFavoriteMeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list favorite meals: %w", err)
	}
	custom, err := s.ListUserAddedFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user-added foods: %w", err)
	}

	return &ExportData{
		Version:        "2.0",
		ExportedAt:     time.Now(),
		Tool:           "health",
		SchemaVersion:  version,
		Records:        *snap,
		FavoriteFoods:  foods,
		FavoriteMeals:  meals,
		UserAddedFoods: custom,
	}, nil
}

// ImportData restores an export, keeping the original ids. Rows with an id
// already present are replaced.
func (s *Store) ImportData(ctx context.Context, data *ExportData) error {
	r := &data.Records
	for i := range r.Weights {
		if err := s.SaveWeight(ctx, &r.Weights[i]); err != nil {
			return fmt.Errorf("import weight: %w", err)
		}
	}
	for i := range r.Medications {
		if err := s.SaveMedication(ctx, &r.Medications[i]); err != nil {
			return fmt.Errorf("import medication: %w", err)
		}
	}
	for i := range r.Oxygen {
		if err := s.SaveOxygen(ctx, &r.Oxygen[i]); err != nil {
			return fmt.Errorf("import oxygen: %w", err)
		}
	}
	for i := range r.Exercises {
		if err := s.SaveExercise(ctx, &r.Exercises[i]); err != nil {
			return fmt.Errorf("import exercise: %w", err)
		}
	}
	for i := range r.Water {
		if err := s.SaveWater(ctx, &r.Water[i]); err != nil {
			return fmt.Errorf("import water: %w", err)
		}
	}
	if err := s.SaveFoods(ctx, r.Foods); err != nil {
		return fmt.Errorf("import foods: %w", err)
	}
	for i := range data.FavoriteFoods {
		if err := s.SaveFavoriteFood(ctx, &data.FavoriteFoods[i]); err != nil {
			return fmt.Errorf("import favorite food: %w", err)
		}
	}
	for i := range data.FavoriteMeals {
		if err := s.SaveFavoriteMeal(ctx, &data.FavoriteMeals[i]); err != nil {
			return fmt.Errorf("import favorite meal: %w", err)
		}
	}
	for i := range data.UserAddedFoods {
		if err := s.SaveUserAddedFood(ctx, &data.UserAddedFoods[i]); err != nil {
			return fmt.Errorf("import user-added food: %w", err)
		}
	}
	return nil
}

// ExportJSON exports all data as JSON.
func (s *Store) ExportJSON(ctx context.Context) ([]byte, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes.
func (s *Store) ImportJSON(ctx context.Context, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return s.ImportData(ctx, &data)
}

// ExportYAML exports all data as YAML with dates rendered as timestamps.
func (s *Store) ExportYAML(ctx context.Context) ([]byte, error) {
	data, err := s.GetAllData(ctx)
	if err != nil {
		return nil, err
	}

	r := data.Records
	out := struct {
		Version        string                 `yaml:"version"`
		ExportedAt     string                 `yaml:"exported_at"`
		Tool           string                 `yaml:"tool"`
		SchemaVersion  int                    `yaml:"schema_version"`
		Weights        []yamlRow              `yaml:"weights"`
		Medications    []yamlRow              `yaml:"medications"`
		Oxygen         []yamlRow              `yaml:"oxygen"`
		Exercises      []yamlRow              `yaml:"exercises"`
		Water          []yamlRow              `yaml:"water"`
		Foods          []yamlRow              `yaml:"foods"`
		FavoriteFoods  []models.FavoriteFood  `yaml:"favorite_foods"`
		FavoriteMeals  []models.FavoriteMeal  `yaml:"favorite_meals"`
		UserAddedFoods []models.UserAddedFood `yaml:"user_added_foods"`
	}{
		Version:        data.Version,
		ExportedAt:     data.ExportedAt.Format(time.RFC3339),
		Tool:           data.Tool,
		SchemaVersion:  data.SchemaVersion,
		FavoriteFoods:  data.FavoriteFoods,
		FavoriteMeals:  data.FavoriteMeals,
		UserAddedFoods: data.UserAddedFoods,
	}

	for _, w := range r.Weights {
		row := newYAMLRow(w.ID, w.Date, fmt.Sprintf("%.1f kg", w.Weight))
		if w.IsGoal {
			row.Detail = "goal"
		}
		out.Weights = append(out.Weights, row)
	}
	for _, m := range r.Medications {
		row := newYAMLRow(m.ID, m.Date, m.Name)
		row.Detail = strings.TrimSpace(fmt.Sprintf("%s %s (%s)", m.Dosage, m.Frequency, m.Type))
		out.Medications = append(out.Medications, row)
	}
	for _, o := range r.Oxygen {
		out.Oxygen = append(out.Oxygen, newYAMLRow(o.ID, o.Date, fmt.Sprintf("%.0f%%", o.Level)))
	}
	for _, e := range r.Exercises {
		out.Exercises = append(out.Exercises, newYAMLRow(e.ID, e.Date, fmt.Sprintf("%s %d min", e.Type, e.Minutes)))
	}
	for _, w := range r.Water {
		out.Water = append(out.Water, newYAMLRow(w.ID, w.Date, fmt.Sprintf("%d ml", w.Amount)))
	}
	for _, f := range r.Foods {
		row := newYAMLRow(f.ID, f.Date, f.Name)
		row.Detail = fmt.Sprintf("%s, %.0f kcal", f.MealCategory, f.Calories)
		out.Foods = append(out.Foods, row)
	}

	return yaml.Marshal(out)
}

type yamlRow struct {
	ID     int64  `yaml:"id"`
	Date   string `yaml:"date"`
	Value  string `yaml:"value"`
	Detail string `yaml:"detail,omitempty"`
}

func newYAMLRow(id, date int64, value string) yamlRow {
	return yamlRow{ID: id, Date: models.FromMillis(date).Format(time.RFC3339), Value: value}
}

// ExportMarkdown exports records since the given time as Markdown tables.
// A nil since exports everything.
func (s *Store) ExportMarkdown(ctx context.Context, since *time.Time) (string, error) {
	f := Filter{}
	if since != nil {
		f = Between(models.Millis(*since), models.Millis(time.Now().AddDate(100, 0, 0)))
	}

	var sb strings.Builder
	now := time.Now()
	fmt.Fprintf(&sb, "# Health Export - %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format(time.RFC3339))

	weights, err := s.ListWeights(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Weight", []string{"Date", "Weight", "Goal"}, len(weights), func(i int) []string {
		w := weights[i]
		goal := ""
		if w.IsGoal {
			goal = "yes"
		}
		return []string{mdDate(w.Date), fmt.Sprintf("%.1f kg", w.Weight), goal}
	})

	meds, err := s.ListMedications(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Medication", []string{"Date", "Name", "Dosage", "Frequency", "Type"}, len(meds), func(i int) []string {
		m := meds[i]
		return []string{mdDate(m.Date), m.Name, m.Dosage, m.Frequency, string(m.Type)}
	})

	oxygen, err := s.ListOxygen(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Oxygen", []string{"Date", "SpO2"}, len(oxygen), func(i int) []string {
		return []string{mdDate(oxygen[i].Date), fmt.Sprintf("%.0f%%", oxygen[i].Level)}
	})

	exercises, err := s.ListExercises(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Exercise", []string{"Date", "Type", "Minutes"}, len(exercises), func(i int) []string {
		e := exercises[i]
		return []string{mdDate(e.Date), e.Type, fmt.Sprintf("%d", e.Minutes)}
	})

	water, err := s.ListWater(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Water", []string{"Date", "Amount"}, len(water), func(i int) []string {
		return []string{mdDate(water[i].Date), fmt.Sprintf("%d ml", water[i].Amount)}
	})

	foods, err := s.ListFoods(ctx, f)
	if err != nil {
		return "", err
	}
	section(&sb, "Food", []string{"Date", "Meal", "Name", "Qty", "kcal", "Protein", "Carbs", "Fat"}, len(foods), func(i int) []string {
		fd := foods[i]
		return []string{
			mdDate(fd.Date), fd.MealCategory, fd.Name, fmt.Sprintf("%g", fd.Quantity),
			fmt.Sprintf("%.0f", fd.Calories), fmt.Sprintf("%.1f", fd.Protein),
			fmt.Sprintf("%.1f", fd.Carbs), fmt.Sprintf("%.1f", fd.Fat),
		}
	})

	return sb.String(), nil
}

func section(sb *strings.Builder, title string, headers []string, n int, row func(i int) []string) {
	if n == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for i := 0; i < n; i++ {
		sb.WriteString("| " + strings.Join(row(i), " | ") + " |\n")
	}
	sb.WriteString("\n")
}

func mdDate(ms int64) string {
	return models.FromMillis(ms).Format("2006-01-02 15:04")
}
