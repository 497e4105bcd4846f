package main

import (
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/config"
)

func newTopCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top-ranked papers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ranked, err := store.New(db).TopScores(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if outputFmt == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}

			for i, r := range ranked {
				flag := ""
				if r.BaselineInsufficient {
					flag = " (low-confidence baseline)"
				}
				fmt.Printf("%3d. %.4f  %-12s %s%s\n", i+1, r.Total, r.Category, r.Title, flag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "paperradar.yaml", "Path to config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of papers to show")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}
