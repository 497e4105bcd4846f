package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/paperradar/paperradar/internal/engine"
	"github.com/paperradar/paperradar/internal/platform"
	"github.com/paperradar/paperradar/internal/storage"
	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/config"
	"github.com/paperradar/paperradar/pkg/scoring"
)

func newCycleCmd() *cobra.Command {
	var (
		configPath string
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one ranking cycle",
		Long:  `Loads the paper population from the database, computes category baselines, scores every paper, and persists the results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd.Context(), configPath, outputFmt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "paperradar.yaml", "Path to config file")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runCycle(ctx context.Context, configPath, outputFmt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := platform.AutoMigrate(db); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	st := store.New(db)

	c, err := cache.New(cfg.Cache.TTLs, cfg.Cache.MaxItems)
	if err != nil {
		return err
	}

	scorer, err := scoring.New(cfg.Scoring, nil)
	if err != nil {
		return err
	}

	est := baseline.New(
		time.Duration(cfg.Baseline.WindowDays)*24*time.Hour,
		cfg.Baseline.MinSample,
		time.Now,
	)

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Config{
		Window:            time.Duration(cfg.Baseline.WindowDays) * 24 * time.Hour,
		Deadline:          cfg.Cycle.Deadline,
		Workers:           cfg.Cycle.Workers,
		DegradedThreshold: cfg.Cycle.DegradedThreshold,
		EmbeddingDim:      cfg.Cycle.EmbeddingDim,
	}, st, st, est, scorer, c, blobs, logger)

	report, err := eng.RunCycle(ctx)
	if err != nil {
		return err
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("cycle %s: %s\n", report.CycleID, report.Status)
	fmt.Printf("  scored:   %d\n", report.Scored)
	fmt.Printf("  failed:   %d\n", report.Failed)
	fmt.Printf("  skipped:  %d\n", report.Skipped)
	fmt.Printf("  elapsed:  %s\n", report.Elapsed)
	return nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	url := cfg.DatabaseURL
	if v := os.Getenv("DATABASE_URL"); v != "" {
		url = v
	}
	if url == "" {
		url = "postgres://localhost:5432/paperradar?sslmode=disable"
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
