// Command paperradard is the Paper Radar service. It runs the periodic
// ranking cycle and serves the read API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/paperradar/paperradar/internal/api"
	"github.com/paperradar/paperradar/internal/engine"
	"github.com/paperradar/paperradar/internal/platform"
	"github.com/paperradar/paperradar/internal/storage"
	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/config"
	"github.com/paperradar/paperradar/pkg/ratelimit"
	"github.com/paperradar/paperradar/pkg/scoring"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(envOrDefault("PAPERRADAR_CONFIG", "paperradar.yaml"))
	if err != nil {
		return err
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "postgres://localhost:5432/paperradar?sslmode=disable"
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := platform.AutoMigrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}

	st := store.New(db)

	c, err := cache.New(cfg.Cache.TTLs, cfg.Cache.MaxItems)
	if err != nil {
		return err
	}
	go c.RunSweeper(ctx, cfg.Cache.SweepInterval, cfg.Cache.SweepGrace)

	scorer, err := scoring.New(cfg.Scoring, nil)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cfg.Providers.Limits, cfg.Providers.Fallback)
	if err != nil {
		return err
	}

	window := time.Duration(cfg.Baseline.WindowDays) * 24 * time.Hour
	est := baseline.New(window, cfg.Baseline.MinSample, time.Now)

	eng := engine.New(engine.Config{
		Window:            window,
		Deadline:          cfg.Cycle.Deadline,
		Workers:           cfg.Cycle.Workers,
		DegradedThreshold: cfg.Cycle.DegradedThreshold,
		EmbeddingDim:      cfg.Cycle.EmbeddingDim,
	}, st, st, est, scorer, c, blobs, logger)

	job := engine.NewJob(eng, cfg.Cycle.Interval, blobs, logger)
	job.Start(ctx)

	handler := api.NewHandler(st, c, limiter, cfg.Server.TopLimit, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("starting paperradard", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}

	job.Stop()
	job.Await()
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
