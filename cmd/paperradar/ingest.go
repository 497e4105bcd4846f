package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/paperradar/paperradar/internal/platform"
	"github.com/paperradar/paperradar/internal/storage"
	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/config"
	"github.com/paperradar/paperradar/pkg/paper"
)

func newIngestCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ingest <metrics.json>",
		Short: "Load paper metric snapshots into the database",
		Long: `Reads a JSON array of paper metric snapshots and upserts them into the
database. Snapshots carrying an embedding vector also have it written to
blob storage for the similarity index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), args[0], configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "paperradar.yaml", "Path to config file")

	return cmd
}

func runIngest(ctx context.Context, path, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading metrics: %w", err)
	}

	var snapshots []paper.Metrics
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return fmt.Errorf("parsing metrics: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := platform.AutoMigrate(db); err != nil {
		return err
	}

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	st := store.New(db)
	loaded, skipped := 0, 0
	for _, m := range snapshots {
		if err := m.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "skipping: %v\n", err)
			skipped++
			continue
		}
		if err := st.UpsertMetrics(ctx, m); err != nil {
			return err
		}
		if len(m.Embedding) > 0 {
			enc, err := storage.EncodeEmbedding(m.Embedding)
			if err != nil {
				return fmt.Errorf("encode embedding %s: %w", m.PaperID, err)
			}
			if err := blobs.PutEmbedding(ctx, m.PaperID, enc); err != nil {
				return fmt.Errorf("store embedding %s: %w", m.PaperID, err)
			}
		}
		loaded++
	}

	fmt.Printf("loaded %d snapshots, skipped %d\n", loaded, skipped)
	return nil
}
