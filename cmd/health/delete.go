// ABOUTME: CLI commands for deleting one record or clearing many.
// ABOUTME: clear asks for confirmation unless --yes is given.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/storage"
	"github.com/spf13/cobra"
)

var (
	clearPeriod   string
	clearCategory string
	clearYes      bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <collection> <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a record",
	Long: `Delete one record by its collection and ID.

The ID is shown in the first column of 'health list' output.

EXAMPLES:

  health delete weight 12
  health rm food 40

CAUTION:

  This permanently deletes the record. There is no undo.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id: %s", args[1])
		}

		if err := deleteRecord(cmd.Context(), c, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s #%d not found", c, id)
			}
			return fmt.Errorf("failed to delete %s: %w", c, err)
		}

		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %s #%d\n", c, id)
		return afterWrite(cmd)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <collection>",
	Short: "Delete every record in a collection",
	Long: `Delete every record of a collection, optionally narrowed to a trailing
period or a category.

EXAMPLES:

  health clear water --period day       # Start today's water over
  health clear food --category snack    # Drop all snacks
  health clear oxygen --yes             # Everything, no prompt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCollection(args[0])
		if err != nil {
			return err
		}
		q, err := periodQuery(clearPeriod, clearCategory, 0, true)
		if err != nil {
			return err
		}

		if !clearYes {
			fmt.Fprintf(cmd.OutOrStdout(), "This will PERMANENTLY DELETE matching %s records.\n", c)
			fmt.Fprint(cmd.OutOrStdout(), "Continue? [y/N]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.TrimSpace(strings.ToLower(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
				return nil
			}
		}

		n, err := clearRecords(cmd.Context(), c, q)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", c, err)
		}
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Cleared %d %s records\n", n, c)
		return afterWrite(cmd)
	},
}

func init() {
	clearCmd.Flags().StringVarP(&clearPeriod, "period", "p", "", "day, week or month")
	clearCmd.Flags().StringVarP(&clearCategory, "category", "t", "", "only this type or meal category")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
}
