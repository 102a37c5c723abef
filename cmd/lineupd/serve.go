package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/m3undle/lineup/internal/api"
	"github.com/m3undle/lineup/internal/catalog"
	"github.com/m3undle/lineup/internal/config"
	"github.com/m3undle/lineup/internal/events"
	"github.com/m3undle/lineup/internal/fetch"
	"github.com/m3undle/lineup/internal/log"
	"github.com/m3undle/lineup/internal/refresh"
	"github.com/m3undle/lineup/internal/relay"
	"github.com/m3undle/lineup/internal/snapshot"
	"github.com/m3undle/lineup/internal/version"
)

var (
	serveConfigPath string
	serveBaseURL    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lineup daemon",
	Long:  "Opens the catalog, runs the refresh schedule loop, and serves the playlist, guide, status, and stream relay endpoints until interrupted.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to config file (YAML)")
	serveCmd.Flags().StringVar(&serveBaseURL, "base-url", "", "externally-visible origin used to build absolute stream/guide URLs (overrides LINEUP_BASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Configure(log.Config{Level: "info", Service: "lineupd"})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "lineupd"})

	origin := serveBaseURL
	if origin == "" {
		origin = os.Getenv("LINEUP_BASE_URL")
	}
	if origin == "" {
		origin = "http://localhost" + cfg.ListenAddr
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	if err := os.MkdirAll(cfg.SnapshotDirectory, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	store, err := catalog.Open(ctx, cfg.DatabasePath, catalog.DefaultConfig())
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close catalog")
		}
	}()

	bus := events.NewBus[any](16)
	builder := snapshot.NewBuilder(store, fetch.New(), cfg.SnapshotDirectory, cfg.SnapshotRetentionCount)
	coordinator := refresh.NewCoordinator(builder, bus, cfg.RefreshInterval, cfg.RefreshTimeout, cfg.RefreshStartupDelay)

	relayer := relay.New(store, cfg.RelayRatePerSecond, cfg.RelayBurst)
	server := api.NewServer(store, relayer, origin)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("addr", cfg.ListenAddr).
		Str("base_url", origin).
		Str("database", cfg.DatabasePath).
		Str("snapshot_dir", cfg.SnapshotDirectory).
		Msg("starting lineupd")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coordinator.Run(ctx)
	})

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("lineupd exited with error: %w", err)
	}

	logger.Info().Msg("lineupd exiting")
	return nil
}
