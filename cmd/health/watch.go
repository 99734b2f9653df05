// ABOUTME: CLI command that follows a collection live through the change feed.
// ABOUTME: Prints the matching records again after every change until interrupted.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	watchPeriod  string
	watchUpdates int
)

var watchCmd = &cobra.Command{
	Use:   "watch <collection|totals>",
	Short: "Follow a collection live",
	Long: `Print a collection (or today's totals) and print it again every time it
changes, for example while another terminal or the MCP server is logging.

EXAMPLES:

  health watch water --period day
  health watch totals
  health watch food --updates 3     # stop after three updates`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if args[0] == "totals" {
			return watchTotals(ctx, cmd)
		}

		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		q, err := periodQuery(watchPeriod, "", 0, true)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		seen := 0
		for u := range watchCounts(ctx, c, q) {
			if u.Err != nil {
				return fmt.Errorf("watch %s: %w", c, u.Err)
			}
			lines, err := rows(ctx, c, withLimit(q, 10))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", faint.Sprint(time.Now().Format("15:04:05")), u.Value, c)
			printRows(cmd.OutOrStdout(), lines)
			seen++
			if watchUpdates > 0 && seen >= watchUpdates {
				return nil
			}
		}
		return nil
	},
}

func watchTotals(ctx context.Context, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	seen := 0
	for u := range repo.WatchDayTotals(ctx, time.Now()) {
		if u.Err != nil {
			return fmt.Errorf("watch totals: %w", u.Err)
		}
		t := u.Value
		fmt.Fprintf(cmd.OutOrStdout(), "%s water %d ml, exercise %d min, food %d (%.0f kcal), meds %d\n",
			faint.Sprint(time.Now().Format("15:04:05")),
			t.WaterML, t.ExerciseMinutes, t.FoodCount, t.Nutrients.Calories, t.Medications)
		seen++
		if watchUpdates > 0 && seen >= watchUpdates {
			return nil
		}
	}
	return nil
}

func init() {
	watchCmd.Flags().StringVarP(&watchPeriod, "period", "p", "", "day, week or month")
	watchCmd.Flags().IntVar(&watchUpdates, "updates", 0, "stop after this many updates (0 = until interrupted)")
	rootCmd.AddCommand(watchCmd)
}
