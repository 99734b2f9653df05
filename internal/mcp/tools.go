// ABOUTME: MCP tool implementations for the six record collections and favorites.
// ABOUTME: Tools log, list and delete records, quick-add favorites and report day totals.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_weight",
		Description: "Record a body weight, or a goal weight",
	}, s.handleLogWeight)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_medication",
		Description: "Record a medication dose (type daily or exacerbation)",
	}, s.handleLogMedication)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_oxygen",
		Description: "Record a blood oxygen saturation reading in percent",
	}, s.handleLogOxygen)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_exercise",
		Description: "Record an exercise session in minutes",
	}, s.handleLogExercise)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_water",
		Description: "Record water intake in millilitres",
	}, s.handleLogWater)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_food",
		Description: "Record a food with its macros",
	}, s.handleLogFood)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_favorite",
		Description: "Log a favorite food or favorite meal by its label",
	}, s.handleLogFavorite)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_records",
		Description: "List records of one collection for a day, week or month",
	}, s.handleListRecords)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_record",
		Description: "Delete one record by collection and id",
	}, s.handleDeleteRecord)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "day_totals",
		Description: "Water, exercise, food and medication totals for one day",
	}, s.handleDayTotals)
}

// Tool input/output types

type logWeightInput struct {
	Weight float64 `json:"weight" jsonschema:"Body weight"`
	IsGoal bool    `json:"is_goal,omitempty" jsonschema:"Record as the goal weight"`
	Date   string  `json:"date,omitempty" jsonschema:"Timestamp (RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD), defaults to now"`
}

type logMedicationInput struct {
	Name      string `json:"name" jsonschema:"Medication name"`
	Dosage    string `json:"dosage,omitempty" jsonschema:"Dose, e.g. 10mg"`
	Frequency string `json:"frequency,omitempty" jsonschema:"How often it is taken"`
	Type      string `json:"type" jsonschema:"daily or exacerbation"`
	Date      string `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type logOxygenInput struct {
	Level float64 `json:"level" jsonschema:"SpO2 percent, 0 to 100"`
	Date  string  `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type logExerciseInput struct {
	Type    string `json:"type" jsonschema:"Kind of exercise, e.g. walk"`
	Minutes int    `json:"minutes" jsonschema:"Duration in minutes"`
	Date    string `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type logWaterInput struct {
	AmountML int    `json:"amount_ml" jsonschema:"Amount in millilitres"`
	Date     string `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type logFoodInput struct {
	Name         string  `json:"name" jsonschema:"Food name"`
	MealCategory string  `json:"meal_category,omitempty" jsonschema:"breakfast, lunch, dinner or snack"`
	Quantity     float64 `json:"quantity,omitempty" jsonschema:"Servings, defaults to 1"`
	Calories     float64 `json:"calories,omitempty" jsonschema:"kcal"`
	Protein      float64 `json:"protein,omitempty" jsonschema:"grams"`
	Carbs        float64 `json:"carbs,omitempty" jsonschema:"grams"`
	Fat          float64 `json:"fat,omitempty" jsonschema:"grams"`
	Date         string  `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type logFavoriteInput struct {
	Label string `json:"label" jsonschema:"Favorite label, matched case-insensitively"`
	Kind  string `json:"kind,omitempty" jsonschema:"food or meal, defaults to food"`
	Date  string `json:"date,omitempty" jsonschema:"Timestamp, defaults to now"`
}

type listRecordsInput struct {
	Collection string `json:"collection" jsonschema:"weight, medication, oxygen, exercise, water or food"`
	Period     string `json:"period,omitempty" jsonschema:"day, week or month ending today, defaults to day"`
	Category   string `json:"category,omitempty" jsonschema:"Medication type, exercise type or meal category"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results"`
}

type deleteRecordInput struct {
	Collection string `json:"collection" jsonschema:"weight, medication, oxygen, exercise, water or food"`
	ID         int64  `json:"id" jsonschema:"Record id"`
}

type dayTotalsInput struct {
	Date string `json:"date,omitempty" jsonschema:"Day to summarize, defaults to today"`
}

type recordOutput struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

func (s *Server) dateMillis(in string) (int64, error) {
	t, err := repository.ParseTime(in, s.now())
	if err != nil {
		return 0, err
	}
	return models.Millis(t), nil
}

// Tool handlers

func (s *Server) handleLogWeight(ctx context.Context, req *mcp.CallToolRequest, input logWeightInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	w := &models.WeightEntry{Date: date, Weight: input.Weight, IsGoal: input.IsGoal}
	if err := s.repo.SaveWeight(ctx, w); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save weight: %w", err)
	}
	what := "weight"
	if w.IsGoal {
		what = "goal weight"
	}
	return nil, recordOutput{ID: w.ID, Message: fmt.Sprintf("Added %s %.1f (ID: %d)", what, w.Weight, w.ID)}, nil
}

func (s *Server) handleLogMedication(ctx context.Context, req *mcp.CallToolRequest, input logMedicationInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	m := &models.Medication{
		Date:      date,
		Name:      input.Name,
		Dosage:    input.Dosage,
		Frequency: input.Frequency,
		Type:      models.MedicationType(strings.ToLower(input.Type)),
	}
	if err := s.repo.SaveMedication(ctx, m); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save medication: %w", err)
	}
	return nil, recordOutput{ID: m.ID, Message: fmt.Sprintf("Added %s %s (ID: %d)", m.Name, m.Dosage, m.ID)}, nil
}

func (s *Server) handleLogOxygen(ctx context.Context, req *mcp.CallToolRequest, input logOxygenInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	o := &models.OxygenReading{Date: date, Level: input.Level}
	if err := s.repo.SaveOxygen(ctx, o); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save oxygen reading: %w", err)
	}
	return nil, recordOutput{ID: o.ID, Message: fmt.Sprintf("Added SpO2 %.0f%% (ID: %d)", o.Level, o.ID)}, nil
}

func (s *Server) handleLogExercise(ctx context.Context, req *mcp.CallToolRequest, input logExerciseInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	e := &models.ExerciseEntry{Date: date, Type: input.Type, Minutes: input.Minutes}
	if err := s.repo.SaveExercise(ctx, e); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save exercise: %w", err)
	}
	return nil, recordOutput{ID: e.ID, Message: fmt.Sprintf("Added %s for %d min (ID: %d)", e.Type, e.Minutes, e.ID)}, nil
}

func (s *Server) handleLogWater(ctx context.Context, req *mcp.CallToolRequest, input logWaterInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	w := &models.WaterEntry{Date: date, Amount: input.AmountML}
	if err := s.repo.SaveWater(ctx, w); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save water: %w", err)
	}
	return nil, recordOutput{ID: w.ID, Message: fmt.Sprintf("Added %d ml water (ID: %d)", w.Amount, w.ID)}, nil
}

func (s *Server) handleLogFood(ctx context.Context, req *mcp.CallToolRequest, input logFoodInput) (*mcp.CallToolResult, recordOutput, error) {
	date, err := s.dateMillis(input.Date)
	if err != nil {
		return nil, recordOutput{}, err
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}
	f := &models.FoodEntry{
		Date:         date,
		Name:         input.Name,
		MealCategory: strings.ToLower(input.MealCategory),
		Quantity:     input.Quantity,
		Nutrients: models.Nutrients{
			Calories: input.Calories,
			Protein:  input.Protein,
			Carbs:    input.Carbs,
			Fat:      input.Fat,
		},
	}
	if err := s.repo.SaveFood(ctx, f); err != nil {
		return nil, recordOutput{}, fmt.Errorf("failed to save food: %w", err)
	}
	return nil, recordOutput{ID: f.ID, Message: fmt.Sprintf("Added %s, %.0f kcal (ID: %d)", f.Name, f.Calories, f.ID)}, nil
}

func (s *Server) handleLogFavorite(ctx context.Context, req *mcp.CallToolRequest, input logFavoriteInput) (*mcp.CallToolResult, simpleOutput, error) {
	t, err := repository.ParseTime(input.Date, s.now())
	if err != nil {
		return nil, simpleOutput{}, err
	}

	switch strings.ToLower(input.Kind) {
	case "", "food":
		f, err := s.repo.LogFavoriteFood(ctx, input.Label, t)
		if err != nil {
			return nil, simpleOutput{}, fmt.Errorf("failed to log favorite food: %w", err)
		}
		return nil, simpleOutput{Message: fmt.Sprintf("Logged %s (ID: %d)", f.Name, f.ID)}, nil
	case "meal":
		entries, err := s.repo.LogFavoriteMeal(ctx, input.Label, t)
		if err != nil {
			return nil, simpleOutput{}, fmt.Errorf("failed to log favorite meal: %w", err)
		}
		return nil, simpleOutput{Message: fmt.Sprintf("Logged %d foods from %s", len(entries), input.Label)}, nil
	default:
		return nil, simpleOutput{}, fmt.Errorf("unknown favorite kind %q (want food or meal)", input.Kind)
	}
}

func (s *Server) handleListRecords(ctx context.Context, req *mcp.CallToolRequest, input listRecordsInput) (*mcp.CallToolResult, any, error) {
	r, err := repository.Trailing(input.Period, s.now())
	if err != nil {
		return nil, nil, err
	}
	q := repository.In(r)
	q.Category = input.Category
	q.Limit = input.Limit

	var out any
	switch strings.ToLower(input.Collection) {
	case "weight", "weights":
		out, err = s.repo.Weights(ctx, q)
	case "medication", "medications":
		out, err = s.repo.Medications(ctx, q)
	case "oxygen":
		out, err = s.repo.Oxygen(ctx, q)
	case "exercise", "exercises":
		out, err = s.repo.Exercises(ctx, q)
	case "water":
		out, err = s.repo.Water(ctx, q)
	case "food", "foods":
		out, err = s.repo.Foods(ctx, q)
	default:
		return nil, nil, fmt.Errorf("unknown collection: %s", input.Collection)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list %s: %w", input.Collection, err)
	}
	return nil, map[string]any{"records": out}, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, req *mcp.CallToolRequest, input deleteRecordInput) (*mcp.CallToolResult, simpleOutput, error) {
	var err error
	switch strings.ToLower(input.Collection) {
	case "weight", "weights":
		err = s.repo.DeleteWeight(ctx, input.ID)
	case "medication", "medications":
		err = s.repo.DeleteMedication(ctx, input.ID)
	case "oxygen":
		err = s.repo.DeleteOxygen(ctx, input.ID)
	case "exercise", "exercises":
		err = s.repo.DeleteExercise(ctx, input.ID)
	case "water":
		err = s.repo.DeleteWater(ctx, input.ID)
	case "food", "foods":
		err = s.repo.DeleteFood(ctx, input.ID)
	default:
		return nil, simpleOutput{}, fmt.Errorf("unknown collection: %s", input.Collection)
	}
	if err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete %s %d: %w", input.Collection, input.ID, err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted %s %d", input.Collection, input.ID)}, nil
}

func (s *Server) handleDayTotals(ctx context.Context, req *mcp.CallToolRequest, input dayTotalsInput) (*mcp.CallToolResult, *repository.DayTotals, error) {
	t, err := repository.ParseTime(input.Date, s.now())
	if err != nil {
		return nil, nil, err
	}
	totals, err := s.repo.DayTotals(ctx, t)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to total day: %w", err)
	}
	return nil, totals, nil
}
