// ABOUTME: CLI command for listing records of one collection.
// ABOUTME: Supports trailing periods, category filtering and limiting results.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listPeriod   string
	listCategory string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:     "list <collection>",
	Aliases: []string{"ls", "l"},
	Short:   "List records",
	Long: `List records of one collection, newest first.

COLLECTIONS:

  weight, medication, oxygen, exercise, water, food

OUTPUT FORMAT:

  Each line shows: #ID  TIMESTAMP  VALUE

  The ID is what delete expects.

FILTERING:

  --period day|week|month   Trailing window ending today (default: everything)
  --category                Medication type, exercise type or meal category

EXAMPLES:

  health list weight                    # Last 20 weights
  health list water --period day        # Today's water
  health list food --category lunch     # Lunches
  health list medication -t daily -n 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		q, err := periodQuery(listPeriod, listCategory, listLimit, true)
		if err != nil {
			return err
		}

		lines, err := rows(cmd.Context(), c, q)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", c, err)
		}
		if len(lines) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
			return nil
		}
		printRows(cmd.OutOrStdout(), lines)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listPeriod, "period", "p", "", "day, week or month")
	listCmd.Flags().StringVarP(&listCategory, "category", "t", "", "filter by type or meal category")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results")
	rootCmd.AddCommand(listCmd)
}
