package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "esia-review",
	Short: "Environmental assessment document analysis pipeline",
	Long:  "Converts ESIA reports to text, extracts quantitative and categorical facts via tiered Claude models, consolidates them with unit normalization and conflict detection, and writes reviewer artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
