// ABOUTME: CLI command summarizing one day: totals plus current and goal weight.
// ABOUTME: Defaults to today.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/spf13/cobra"
)

var statusDate string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's totals",
	Long: `Show water, exercise, food and medication totals for one day, plus the
current and goal weight.

EXAMPLES:

  health status
  health status --date 2024-12-14`,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := repository.ParseTime(statusDate, time.Now())
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		totals, err := repo.DayTotals(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to total day: %w", err)
		}
		current, err := repo.CurrentWeight(ctx)
		if err != nil {
			return err
		}
		goal, err := repo.GoalWeight(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(out, "%s\n", totals.Day.Start.Format("Monday, 2006-01-02"))
		fmt.Fprintf(out, "  Water       %d ml\n", totals.WaterML)
		fmt.Fprintf(out, "  Exercise    %d min\n", totals.ExerciseMinutes)
		fmt.Fprintf(out, "  Food        %d items, %.0f kcal (P %.0fg C %.0fg F %.0fg)\n",
			totals.FoodCount, totals.Nutrients.Calories, totals.Nutrients.Protein,
			totals.Nutrients.Carbs, totals.Nutrients.Fat)
		fmt.Fprintf(out, "  Medication  %d doses\n", totals.Medications)

		switch {
		case current == nil:
			fmt.Fprintln(out, faint.Sprint("  No weight recorded"))
		case goal == nil:
			fmt.Fprintf(out, "  Weight      %.1f kg\n", current.Weight)
		default:
			fmt.Fprintf(out, "  Weight      %.1f kg (goal %.1f kg, %+.1f to go)\n",
				current.Weight, goal.Weight, current.Weight-goal.Weight)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDate, "date", "", "day to summarize (YYYY-MM-DD)")
	rootCmd.AddCommand(statusCmd)
}
