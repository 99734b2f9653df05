// ABOUTME: The schema command: creates the postgres ledger tables ahead of the first serve.
// ABOUTME: Idempotent; badger needs no schema.
package main

import (
	"context"
	"fmt"

	"github.com/harperreed/healthlink/internal/cloudstore"
	"github.com/harperreed/healthlink/internal/config"
	"github.com/spf13/cobra"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the postgres ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(envFile)
			if err != nil {
				return err
			}
			if cfg.LedgerBackend != "postgres" {
				fmt.Fprintf(cmd.OutOrStdout(), "Backend %q needs no schema.\n", cfg.LedgerBackend)
				return nil
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for the postgres backend")
			}
			return ensurePostgresSchema(cmd.Context(), cmd, cfg)
		},
	}
}

func ensurePostgresSchema(ctx context.Context, cmd *cobra.Command, cfg *config.ServerConfig) error {
	pool, err := cloudstore.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	pg := cloudstore.NewPostgres(pool)
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Ledger schema is up to date.")
	return nil
}
