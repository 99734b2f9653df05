// ABOUTME: CLI commands for pushing snapshots to the healthlink server.
// ABOUTME: Supports login, logout, status and push; every write also pushes once.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/healthlink/internal/models"
	healthsync "github.com/harperreed/healthlink/internal/sync"
	"github.com/spf13/cobra"
)

var (
	loginServer  string
	loginToken   string
	loginExpires string
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Aliases: []string{"s"},
	Short:   "Push health data to your healthlink server",
	Long: `Push a full snapshot of your local records to your healthlink server.

The server keeps one copy of each record and replaces it on every push, so
pushing twice is harmless. Nothing is pulled back: this device stays the
source of truth.

GETTING STARTED:

  1. Log in with the token from your identity provider:
     health sync login --server https://health.example.com --token <token>

  2. Push now (later changes push automatically):
     health sync push

  3. Check sync status:
     health sync status

COMMANDS:

  login       Save the server URL and access token
  logout      Forget the server and token
  status      Show sync configuration and local record counts
  push        Push a snapshot now

Without a valid token, pushes are skipped silently.`,
}

var syncLoginCmd = &cobra.Command{
	Use:         "login",
	Short:       "Save the server URL and access token",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginServer == "" || loginToken == "" {
			return fmt.Errorf("both --server and --token are required")
		}
		if loginExpires != "" {
			if _, err := time.Parse(time.RFC3339, loginExpires); err != nil {
				return fmt.Errorf("invalid --expires (use RFC3339): %s", loginExpires)
			}
		}

		cfg, err := healthsync.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load sync config: %w", err)
		}
		cfg.Server = strings.TrimRight(loginServer, "/")
		cfg.Token = loginToken
		cfg.TokenExpires = loginExpires
		if cfg.DeviceID == "" {
			cfg.DeviceID = healthsync.GenerateDeviceID()
		}
		if err := healthsync.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save sync config: %w", err)
		}

		success(cmd, "Logged in to %s", cfg.Server)
		fmt.Fprintf(cmd.OutOrStdout(), "  Device: %s\n", cfg.DeviceID)
		return nil
	},
}

var syncLogoutCmd = &cobra.Command{
	Use:         "logout",
	Short:       "Forget the server and token",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := healthsync.ClearConfig(); err != nil {
			return fmt.Errorf("failed to clear sync config: %w", err)
		}
		success(cmd, "Logged out")
		fmt.Fprintln(cmd.OutOrStdout(), "Your local health data is preserved.")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	Long: `Show current sync status including:
- Server and device id
- Whether the saved token is still valid
- Local record counts that the next push will send`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := healthsync.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load sync config: %w", err)
		}
		out := cmd.OutOrStdout()

		if cfg.Server == "" {
			color.New(color.FgYellow).Fprintln(out, "Not logged in")
			fmt.Fprintln(out, "\nRun 'health sync login' to connect to a server.")
		} else {
			fmt.Fprintln(out, "Server:", cfg.Server)
			fmt.Fprintln(out, "Device:", cfg.DeviceID)
			switch {
			case cfg.HasValidToken(time.Now()):
				color.New(color.FgGreen).Fprintln(out, "✓ Token valid")
			case cfg.Token == "":
				warn(cmd, "No token; pushes are skipped")
			default:
				warn(cmd, "Token expired; run 'health sync login' again")
			}
		}

		batch, err := repo.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read local data: %w", err)
		}
		fmt.Fprintln(out)
		counts := batch.Counts()
		for _, c := range models.AllCategories {
			fmt.Fprintf(out, "  %s %d\n", padRight(string(c)+":", 13), counts[c])
		}
		return nil
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a snapshot now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := healthsync.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load sync config: %w", err)
		}
		if cfg.Server == "" {
			return fmt.Errorf("not logged in; run 'health sync login' first")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newSyncClient(cfg)
		outcome, err := awaitSync(ctx, client.Start(ctx, cfg.ActiveToken(time.Now())))
		if err != nil {
			return err
		}
		return reportSync(cmd, outcome.Result, outcome.Err)
	},
}

// awaitSync waits for a started push. On cancellation it still waits for the
// push to finish, since it may be reading the store that is closed on return.
func awaitSync(ctx context.Context, ch <-chan healthsync.Outcome) (healthsync.Outcome, error) {
	select {
	case outcome := <-ch:
		return outcome, nil
	case <-ctx.Done():
		<-ch
		return healthsync.Outcome{}, fmt.Errorf("sync canceled")
	}
}

func newSyncClient(cfg *healthsync.Config) *healthsync.Client {
	opts := []healthsync.Option{healthsync.WithLogger(logger)}
	if appConfig != nil && appConfig.SyncTimeoutSeconds > 0 && cfg.TimeoutSeconds == 0 {
		opts = append(opts, healthsync.WithTimeout(appConfig.SyncTimeout()))
	}
	return healthsync.NewClientFromConfig(cfg, repo, opts...)
}

func reportSync(cmd *cobra.Command, res healthsync.Result, err error) error {
	if err != nil {
		if healthsync.IsUnauthorized(err) {
			return fmt.Errorf("server rejected the token; run 'health sync login' again")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("sync timed out: %w", err)
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	switch res.Status {
	case healthsync.StatusNoToken:
		warn(cmd, "No valid token; nothing pushed")
	case healthsync.StatusBusy:
		warn(cmd, "A sync is already running")
	default:
		total := 0
		for _, n := range res.Counts {
			total += n
		}
		success(cmd, "Synced %d records in %s", total, res.Duration.Round(time.Millisecond))
	}
	return nil
}

// afterWrite pushes once after a local change. Failures are reported but
// never undo or fail the write.
func afterWrite(cmd *cobra.Command) error {
	cfg, err := healthsync.LoadConfig()
	if err != nil {
		logger.Warn().Err(err).Msg("sync config unreadable")
		return nil
	}
	if cfg.Server == "" {
		return nil
	}
	res, err := newSyncClient(cfg).Sync(cmd.Context(), cfg.ActiveToken(time.Now()))
	if err != nil {
		warn(cmd, "Sync failed: %v", err)
		return nil
	}
	logger.Debug().Str("status", string(res.Status)).Msg("sync after write")
	return nil
}

func init() {
	syncLoginCmd.Flags().StringVar(&loginServer, "server", "", "healthlink server URL")
	syncLoginCmd.Flags().StringVar(&loginToken, "token", "", "access token")
	syncLoginCmd.Flags().StringVar(&loginExpires, "expires", "", "token expiry (RFC3339)")

	syncCmd.AddCommand(syncLoginCmd, syncLogoutCmd, syncStatusCmd, syncPushCmd)
	rootCmd.AddCommand(syncCmd)
}
