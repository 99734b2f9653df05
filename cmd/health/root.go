// ABOUTME: Root Cobra command for health CLI.
// ABOUTME: Opens the local store and logger in PersistentPreRunE and closes them afterwards.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/config"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/harperreed/healthlink/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// skipStore marks commands that manage the store themselves or never touch it.
const skipStore = "skip-store"

var (
	dbPath  string
	verbose bool

	appConfig *config.Config
	store     *storage.Store
	repo      *repository.Repository
	logger    = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "health",
	Short: "Personal health tracker",
	Long: `Health is a local-first tracker for weight, medication, oxygen saturation,
exercise, water and food.

WHAT IT TRACKS:

  weight       Body weight, plus an optional goal weight
  medication   Daily and exacerbation medication doses
  oxygen       Blood oxygen saturation (SpO2 %)
  exercise     Exercise sessions in minutes
  water        Water intake in ml
  food         Foods with macro and micronutrients

QUICK START:

  $ health add weight 82.5                      # Log your weight
  $ health add water 500                        # Log a glass of water
  $ health add food "Oatmeal" --calories 300    # Log a food
  $ health list water --period week             # This week's water
  $ health status                               # Today's totals

FAVORITES:

  $ health favorite add "usual toast" Toast --calories 160
  $ health favorite log "usual toast"

SYNC:

  Snapshots are pushed to your healthlink server after every change once
  you are logged in. Your doctor sees them only after you link them.

  $ health sync login --server https://health.example.com --token <token>
  $ health sync push

MCP INTEGRATION:

  Run 'health mcp' to start the Model Context Protocol server for use with
  Claude Desktop or other MCP-compatible AI assistants.

DATA STORAGE:

  Records are stored in SQLite at ~/.local/share/health/health.db
  (override with --db or data_dir in ~/.config/health/config.json).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), verbose)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg

		if cmd.Annotations[skipStore] == "true" {
			return nil
		}

		store, err = cfg.OpenStorage(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		repo = repository.New(store)
		logger.Debug().Str("path", store.Path()).Msg("store opened")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

// Execute runs the root command. The store is closed even when a command
// fails, since cobra skips post-run hooks on error.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeStore(); err == nil {
		err = cerr
	}
	return err
}

func closeStore() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store, repo = nil, nil
	return err
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()
}

func success(cmd *cobra.Command, format string, a ...any) {
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ "+format+"\n", a...)
}

func warn(cmd *cobra.Command, format string, a ...any) {
	color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "⚠ "+format+"\n", a...)
}

var faint = color.New(color.Faint)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default ~/.local/share/health/health.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.SetErr(os.Stderr)
}
