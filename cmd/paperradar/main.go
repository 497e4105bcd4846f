// Package main provides the paperradar CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "paperradar",
		Short: "Research paper ranking and discovery",
		Long: `Paper Radar scores research papers on citation momentum, implementation
quality, novelty, and community signals, normalized against per-category
baselines.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newCycleCmd(),
		newTopCmd(),
		newScoreCmd(),
		newSearchCmd(),
		newIngestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
