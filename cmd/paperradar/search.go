package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/paperradar/paperradar/internal/storage"
	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/config"
	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/simindex"
)

func newSearchCmd() *cobra.Command {
	var (
		configPath string
		k          int
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "search <paper-id>",
		Short: "Find the most similar papers by embedding",
		Long: `Builds a similarity index over the stored embeddings of the current
population and prints the nearest neighbors of the given paper.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), configPath, args[0], k, outputFmt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "paperradar.yaml", "Path to config file")
	cmd.Flags().IntVar(&k, "k", 10, "Number of neighbors to show")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

type searchHit struct {
	PaperID string  `json:"paper_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}

func runSearch(ctx context.Context, configPath, paperID string, k int, outputFmt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Cycle.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding search disabled (cycle.embedding_dim is 0)")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	population, err := store.New(db).ListPopulation(ctx,
		time.Duration(cfg.Baseline.WindowDays)*24*time.Hour)
	if err != nil {
		return err
	}

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	idx := simindex.NewBruteForce(cfg.Cycle.EmbeddingDim)
	titles := make(map[string]string, len(population))
	var query []float32
	for _, m := range population {
		vec, err := loadEmbedding(ctx, blobs, m)
		if err != nil {
			continue
		}
		if err := idx.Add(m.PaperID, vec); err != nil {
			continue
		}
		titles[m.PaperID] = m.Title
		if m.PaperID == paperID {
			query = vec
		}
	}
	if query == nil {
		return fmt.Errorf("no embedding stored for paper %s", paperID)
	}

	var hits []searchHit
	for _, r := range idx.Search(query, k, map[string]bool{paperID: true}) {
		hits = append(hits, searchHit{PaperID: r.ID, Title: titles[r.ID], Score: r.Score})
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	for i, h := range hits {
		fmt.Printf("%3d. %.4f  %s  %s\n", i+1, h.Score, h.PaperID, h.Title)
	}
	return nil
}

func loadEmbedding(ctx context.Context, blobs storage.BlobStore, m paper.Metrics) ([]float32, error) {
	if len(m.Embedding) > 0 {
		return m.Embedding, nil
	}
	data, err := blobs.GetEmbedding(ctx, m.PaperID)
	if err != nil {
		return nil, err
	}
	return storage.DecodeEmbedding(data)
}
