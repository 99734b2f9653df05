// ABOUTME: The serve command: wires config, logging, the ledger backend and the HTTP API.
// ABOUTME: Runs the API and the metrics listener until SIGINT/SIGTERM, then drains.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harperreed/healthlink/internal/api"
	"github.com/harperreed/healthlink/internal/cloudstore"
	"github.com/harperreed/healthlink/internal/config"
	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ledger API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// app is everything serve starts and stops.
type app struct {
	cfg     *config.ServerConfig
	logger  zerolog.Logger
	backend cloudstore.Backend
	server  *api.Server
	metrics *api.Metrics
}

func newLogger(w io.Writer, cfg *config.ServerConfig) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// buildApp opens the ledger backend and assembles the API on top of it.
func buildApp(ctx context.Context, cfg *config.ServerConfig, logger zerolog.Logger) (*app, error) {
	backend, err := cloudstore.Open(ctx, cloudstore.Options{
		Kind:        cfg.LedgerBackend,
		DataDir:     cfg.LedgerDataDir,
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger backend: %w", err)
	}

	verifier, err := api.NewVerifier(api.AuthConfig{
		Issuer:    cfg.AuthIssuer,
		Audience:  cfg.AuthAudience,
		JWKSURL:   cfg.JWKSURL(),
		DevKey:    []byte(cfg.AuthDevKey),
		RoleClaim: cfg.AuthRoleClaim,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("configure token verification: %w", err)
	}

	metrics := api.NewMetrics()
	server := api.NewServer(api.Deps{
		Ledger:   ledger.New(backend, links.NewGate(backend)),
		Registry: links.NewRegistry(backend),
		Consents: links.NewConsentLog(backend),
		Profiles: links.NewProfiles(backend),
		Verifier: verifier,
		Metrics:  metrics,
		Logger:   logger,
	}, api.Options{
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		BodyLimit: cfg.BodyLimit,
	})

	return &app{cfg: cfg, logger: logger, backend: backend, server: server, metrics: metrics}, nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.LoadServer(envFile)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.AuthDevKey != "" {
		logger.Warn().Msg("AUTH_DEV_SIGNING_KEY set; accepting HS256 development tokens")
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() {
		if err := a.backend.Close(); err != nil {
			logger.Error().Err(err).Msg("close ledger backend")
		}
	}()
	logger.Info().Str("backend", cfg.LedgerBackend).Msg("ledger backend ready")

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           a.metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics listener")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		serverErr <- a.server.Start(addr)
	}()

	quit, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-quit.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
