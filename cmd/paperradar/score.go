package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/config"
	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/scoring"
)

func newScoreCmd() *cobra.Command {
	var (
		configPath string
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "score <metrics.json>",
		Short: "Score a population of papers offline",
		Long:  `Reads a JSON array of paper metric snapshots, computes category baselines from that population, and prints every paper's score breakdown. No database required.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScoreFile(args[0], configPath, outputFmt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "paperradar.yaml", "Path to config file")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runScoreFile(path, configPath, outputFmt string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading metrics: %w", err)
	}

	var population []paper.Metrics
	if err := json.Unmarshal(data, &population); err != nil {
		return fmt.Errorf("parsing metrics: %w", err)
	}

	est := baseline.New(
		time.Duration(cfg.Baseline.WindowDays)*24*time.Hour,
		cfg.Baseline.MinSample,
		time.Now,
	)
	baselines := est.Compute(population)

	scorer, err := scoring.New(cfg.Scoring, nil)
	if err != nil {
		return err
	}

	now := time.Now()
	var breakdowns []scoring.Breakdown
	for _, m := range population {
		if err := m.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "skipping: %v\n", err)
			continue
		}
		breakdowns = append(breakdowns, scorer.Score(m, baselines.For(m.Category), now))
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdowns)
	}

	for _, b := range breakdowns {
		fmt.Printf("%s  total=%.4f momentum=%.4f impl=%.4f novelty=%.4f recency=%.4f boost=%.2f\n",
			b.PaperID, b.Total, b.CitationMomentum, b.ImplementationQuality, b.Novelty, b.Recency, b.FreshnessBoost)
	}
	return nil
}
