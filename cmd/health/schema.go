// ABOUTME: CLI commands for inspecting and migrating the local database schema.
// ABOUTME: status never changes the file; migrate moves it forward to a chosen version.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/storage"
	"github.com/spf13/cobra"
)

var migrateTo int

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or migrate the database schema",
	Long: `Inspect or migrate the local SQLite schema.

Every other command migrates the database to the newest version when it opens
it. These commands let you see where a file stands and move it forward one
step at a time. Migrations only add tables and columns; they never drop data.

USAGE:

  health schema status          # Version, newest known version, history
  health schema migrate         # Migrate to the newest version
  health schema migrate --to 4  # Migrate to version 4`,
}

var schemaStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show the schema version and migration history",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.StoragePath(dbPath)
		s, err := storage.OpenExisting(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		version, err := s.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		applied, err := s.AppliedMigrations(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Database:", path)
		fmt.Fprintf(out, "Version:  %d of %d\n", version, storage.LatestVersion())
		if version < storage.LatestVersion() {
			warn(cmd, "Pending migrations; run 'health schema migrate'")
		} else if version > storage.LatestVersion() {
			warn(cmd, "Database is newer than this build")
		}
		fmt.Fprintln(out)
		for _, m := range applied {
			fmt.Fprintf(out, "  %s %s %s\n",
				color.New(color.FgGreen).Sprintf("%3d", m.Version),
				padRight(m.Name, 40),
				faint.Sprint(m.AppliedAt.Local().Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var schemaMigrateCmd = &cobra.Command{
	Use:         "migrate",
	Short:       "Migrate the schema forward",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := migrateTo
		if target == 0 {
			target = storage.LatestVersion()
		}
		path := appConfig.StoragePath(dbPath)
		s, err := storage.OpenAt(path, target)
		if err != nil {
			if errors.Is(err, storage.ErrSchemaTooNew) {
				return fmt.Errorf("cannot migrate backwards: %w", err)
			}
			return fmt.Errorf("migration failed: %w", err)
		}
		defer s.Close()

		success(cmd, "Database at version %d", target)
		return nil
	},
}

func init() {
	schemaMigrateCmd.Flags().IntVar(&migrateTo, "to", 0, "target version (default: newest)")
	schemaCmd.AddCommand(schemaStatusCmd, schemaMigrateCmd)
	rootCmd.AddCommand(schemaCmd)
}
