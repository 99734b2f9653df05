// ABOUTME: Tests for the MCP server tools and resources.
// ABOUTME: Each test runs the handlers directly against a fresh SQLite store.
package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/harperreed/healthlink/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 14, 12, 30, 0, 0, time.Local)

func setupServer(t *testing.T) (*Server, *repository.Repository) {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	repo := repository.New(s)
	srv, err := NewServer(repo)
	require.NoError(t, err)
	srv.now = func() time.Time { return fixedNow }
	return srv, repo
}

func readJSON(t *testing.T, res *mcp.ReadResourceResult) map[string]any {
	t.Helper()
	require.Len(t, res.Contents, 1)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	return out
}

func TestNewServer(t *testing.T) {
	srv, _ := setupServer(t)
	assert.NotNil(t, srv.mcpServer)
	assert.NotNil(t, srv.repo)
}

func TestHandleLogWeight(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()

	_, out, err := srv.handleLogWeight(ctx, &mcp.CallToolRequest{}, logWeightInput{Weight: 82.5})
	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Contains(t, out.Message, "82.5")

	_, out, err = srv.handleLogWeight(ctx, &mcp.CallToolRequest{}, logWeightInput{Weight: 75, IsGoal: true, Date: "2024-01-01"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "goal weight")

	goal, err := repo.GoalWeight(ctx)
	require.NoError(t, err)
	require.NotNil(t, goal)
	assert.Equal(t, 75.0, goal.Weight)

	current, err := repo.CurrentWeight(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, models.Millis(fixedNow), current.Date)
}

func TestHandleLogWeightErrors(t *testing.T) {
	srv, _ := setupServer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input logWeightInput
	}{
		{"zero weight", logWeightInput{Weight: 0}},
		{"negative weight", logWeightInput{Weight: -3}},
		{"bad date", logWeightInput{Weight: 80, Date: "yesterday-ish"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := srv.handleLogWeight(ctx, &mcp.CallToolRequest{}, tt.input)
			assert.Error(t, err)
		})
	}
}

func TestHandleLogMedication(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()

	_, out, err := srv.handleLogMedication(ctx, &mcp.CallToolRequest{}, logMedicationInput{
		Name: "Prednisone", Dosage: "10mg", Type: "Exacerbation",
	})
	require.NoError(t, err)
	assert.NotZero(t, out.ID)

	meds, err := repo.Medications(ctx, repository.Query{Category: "exacerbation"})
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "Prednisone", meds[0].Name)

	_, _, err = srv.handleLogMedication(ctx, &mcp.CallToolRequest{}, logMedicationInput{Name: "X", Type: "weekly"})
	assert.Error(t, err)
}

func TestHandleLogOtherRecords(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, _, err := srv.handleLogOxygen(ctx, req, logOxygenInput{Level: 96})
	require.NoError(t, err)
	_, _, err = srv.handleLogOxygen(ctx, req, logOxygenInput{Level: 120})
	assert.Error(t, err)

	_, _, err = srv.handleLogExercise(ctx, req, logExerciseInput{Type: "walk", Minutes: 30})
	require.NoError(t, err)
	_, _, err = srv.handleLogWater(ctx, req, logWaterInput{AmountML: 500})
	require.NoError(t, err)
	_, out, err := srv.handleLogFood(ctx, req, logFoodInput{Name: "Oatmeal", MealCategory: "Breakfast", Calories: 300})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "300 kcal")

	totals, err := repo.DayTotals(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 500, totals.WaterML)
	assert.Equal(t, 30, totals.ExerciseMinutes)
	assert.Equal(t, 1, totals.FoodCount)
	assert.Equal(t, 300.0, totals.Nutrients.Calories)

	foods, err := repo.Foods(ctx, repository.Query{})
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, "breakfast", foods[0].MealCategory)
	assert.Equal(t, 1.0, foods[0].Quantity)
}

func TestHandleListRecords(t *testing.T) {
	srv, _ := setupServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	for _, d := range []string{"2024-03-14 08:00", "2024-03-10 08:00", "2024-02-01 08:00"} {
		_, _, err := srv.handleLogWater(ctx, req, logWaterInput{AmountML: 250, Date: d})
		require.NoError(t, err)
	}

	tests := []struct {
		period string
		want   int
	}{
		{"", 1},
		{"day", 1},
		{"week", 2},
		{"month", 2},
	}
	for _, tt := range tests {
		t.Run("period "+tt.period, func(t *testing.T) {
			_, out, err := srv.handleListRecords(ctx, req, listRecordsInput{Collection: "water", Period: tt.period})
			require.NoError(t, err)
			records := out.(map[string]any)["records"].([]models.WaterEntry)
			assert.Len(t, records, tt.want)
		})
	}

	_, _, err := srv.handleListRecords(ctx, req, listRecordsInput{Collection: "steps"})
	assert.Error(t, err)
	_, _, err = srv.handleListRecords(ctx, req, listRecordsInput{Collection: "water", Period: "year"})
	assert.Error(t, err)
}

func TestHandleDeleteRecord(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, logged, err := srv.handleLogExercise(ctx, req, logExerciseInput{Type: "bike", Minutes: 20})
	require.NoError(t, err)

	_, out, err := srv.handleDeleteRecord(ctx, req, deleteRecordInput{Collection: "exercise", ID: logged.ID})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Deleted")

	left, err := repo.Exercises(ctx, repository.Query{})
	require.NoError(t, err)
	assert.Empty(t, left)

	_, _, err = srv.handleDeleteRecord(ctx, req, deleteRecordInput{Collection: "exercise", ID: logged.ID})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHandleLogFavorite(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	fav := models.FavoriteFood{Label: "Usual Toast", Name: "Toast", MealCategory: "breakfast", Quantity: 2,
		Nutrients: models.Nutrients{Calories: 160}}
	_, err := repo.InsertFavoriteFood(ctx, &fav)
	require.NoError(t, err)

	_, out, err := srv.handleLogFavorite(ctx, req, logFavoriteInput{Label: "usual toast"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Toast")

	_, _, err = srv.handleLogFavorite(ctx, req, logFavoriteInput{Label: "nothing", Kind: "meal"})
	assert.Error(t, err)
	_, _, err = srv.handleLogFavorite(ctx, req, logFavoriteInput{Label: "usual toast", Kind: "snack"})
	assert.Error(t, err)

	_, totals, err := srv.handleDayTotals(ctx, req, dayTotalsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, totals.FoodCount)
	assert.Equal(t, 160.0, totals.Nutrients.Calories)
}

func TestTodayResource(t *testing.T) {
	srv, _ := setupServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, _, err := srv.handleLogWater(ctx, req, logWaterInput{AmountML: 750})
	require.NoError(t, err)
	_, _, err = srv.handleLogWater(ctx, req, logWaterInput{AmountML: 100, Date: "2024-03-13"})
	require.NoError(t, err)

	res, err := srv.handleTodayResource(ctx, &mcp.ReadResourceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "health://today", res.Contents[0].URI)

	out := readJSON(t, res)
	assert.Equal(t, "2024-03-14", out["date"])
	assert.Len(t, out["water"], 1)
	assert.Equal(t, 750.0, out["totals"].(map[string]any)["waterMl"])
}

func TestWeightResource(t *testing.T) {
	srv, _ := setupServer(t)
	ctx := context.Background()

	res, err := srv.handleWeightResource(ctx, &mcp.ReadResourceRequest{})
	require.NoError(t, err)
	out := readJSON(t, res)
	assert.Nil(t, out["current"])
	assert.NotContains(t, out, "to_goal")

	req := &mcp.CallToolRequest{}
	_, _, err = srv.handleLogWeight(ctx, req, logWeightInput{Weight: 80})
	require.NoError(t, err)
	_, _, err = srv.handleLogWeight(ctx, req, logWeightInput{Weight: 75, IsGoal: true})
	require.NoError(t, err)

	res, err = srv.handleWeightResource(ctx, &mcp.ReadResourceRequest{})
	require.NoError(t, err)
	out = readJSON(t, res)
	assert.Equal(t, 5.0, out["to_goal"])
}

func TestFavoritesResource(t *testing.T) {
	srv, repo := setupServer(t)
	ctx := context.Background()

	meal := models.FavoriteMeal{Label: "Lunch box", MealCategory: "lunch"}
	items := []models.FavoriteMealItem{
		{Name: "Sandwich", Quantity: 1, Nutrients: models.Nutrients{Calories: 400}},
		{Name: "Apple", Quantity: 1, Nutrients: models.Nutrients{Calories: 95}},
	}
	_, err := repo.InsertFavoriteMeal(ctx, &meal, items)
	require.NoError(t, err)

	res, err := srv.handleFavoritesResource(ctx, &mcp.ReadResourceRequest{})
	require.NoError(t, err)
	out := readJSON(t, res)

	meals := out["favorite_meals"].([]any)
	require.Len(t, meals, 1)
	assert.Len(t, meals[0].(map[string]any)["items"], 2)
	assert.Empty(t, out["favorite_foods"])
}
