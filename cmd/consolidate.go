package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/extract"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate <facts-file>",
	Short: "Merge fact occurrences into consolidated facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factsPath := args[0]
		occurrences, err := extract.ReadFacts(factsPath)
		if err != nil {
			return err
		}

		registry, err := initRegistry()
		if err != nil {
			return err
		}

		consolidator, err := consolidate.New(cfg.Consolidate, registry)
		if err != nil {
			return err
		}

		result := consolidator.Merge(occurrences)

		stem := strings.TrimSuffix(filepath.Base(factsPath), "_facts.json")
		outPath := filepath.Join(filepath.Dir(factsPath), stem+"_consolidated.json")
		if err := consolidate.WriteResult(outPath, result); err != nil {
			return err
		}

		zap.L().Info("consolidation complete",
			zap.Int("occurrences", len(occurrences)),
			zap.Int("facts", len(result.Facts)),
			zap.Int("conflicts", result.Conflicts),
			zap.Int("skipped", result.Skipped),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
}
