// ABOUTME: MCP resource implementations for the local health store.
// ABOUTME: Provides health://today, health://weight and health://favorites resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/healthlink/internal/repository"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://today",
		Name:        "Today's Health Data",
		Description: "Today's totals plus every record logged today",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://weight",
		Name:        "Weight Status",
		Description: "Current weight and goal weight",
		MIMEType:    "application/json",
	}, s.handleWeightResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://favorites",
		Name:        "Favorites",
		Description: "Favorite foods, favorite meals and custom foods",
		MIMEType:    "application/json",
	}, s.handleFavoritesResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	now := s.now()
	day := repository.DayRange(now)
	q := repository.In(day)

	totals, err := s.repo.DayTotals(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to total day: %w", err)
	}
	weights, err := s.repo.Weights(ctx, q)
	if err != nil {
		return nil, err
	}
	meds, err := s.repo.Medications(ctx, q)
	if err != nil {
		return nil, err
	}
	oxygen, err := s.repo.Oxygen(ctx, q)
	if err != nil {
		return nil, err
	}
	exercises, err := s.repo.Exercises(ctx, q)
	if err != nil {
		return nil, err
	}
	water, err := s.repo.Water(ctx, q)
	if err != nil {
		return nil, err
	}
	foods, err := s.repo.Foods(ctx, q)
	if err != nil {
		return nil, err
	}

	return jsonResource("health://today", map[string]any{
		"date":        day.Start.Format("2006-01-02"),
		"totals":      totals,
		"weights":     weights,
		"medications": meds,
		"oxygen":      oxygen,
		"exercises":   exercises,
		"water":       water,
		"foods":       foods,
	})
}

func (s *Server) handleWeightResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	current, err := s.repo.CurrentWeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current weight: %w", err)
	}
	goal, err := s.repo.GoalWeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read goal weight: %w", err)
	}

	out := map[string]any{
		"generated_at": s.now().Format(time.RFC3339),
		"current":      current,
		"goal":         goal,
	}
	if current != nil && goal != nil {
		out["to_goal"] = current.Weight - goal.Weight
	}
	return jsonResource("health://weight", out)
}

func (s *Server) handleFavoritesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	foods, err := s.repo.FavoriteFoods(ctx)
	if err != nil {
		return nil, err
	}
	meals, err := s.repo.FavoriteMeals(ctx)
	if err != nil {
		return nil, err
	}
	for i := range meals {
		items, err := s.repo.FavoriteMealItems(ctx, meals[i].ID)
		if err != nil {
			return nil, err
		}
		meals[i].Items = items
	}
	custom, err := s.repo.UserAddedFoods(ctx)
	if err != nil {
		return nil, err
	}

	return jsonResource("health://favorites", map[string]any{
		"favorite_foods":   foods,
		"favorite_meals":   meals,
		"user_added_foods": custom,
	})
}
