package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/report"
)

var verifyTolerance float64

var verifyCmd = &cobra.Command{
	Use:   "verify <consolidated-file> <baseline-register.xlsx>",
	Short: "Compare a consolidation run against a previous register",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := consolidate.ReadResult(args[0])
		if err != nil {
			return err
		}

		baseline, err := report.ReadBaseline(args[1])
		if err != nil {
			return err
		}

		tolerance := verifyTolerance
		if tolerance <= 0 {
			tolerance = cfg.Consolidate.Tolerance
		}

		diff := report.Diff(result.Facts, baseline, tolerance)
		fmt.Print(report.FormatDiff(diff))

		zap.L().Info("baseline comparison complete",
			zap.Int("added", len(diff.Added)),
			zap.Int("removed", len(diff.Removed)),
			zap.Int("changed", len(diff.Changed)),
		)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Float64Var(&verifyTolerance, "tolerance", 0, "relative delta treated as unchanged (default from config)")
	rootCmd.AddCommand(verifyCmd)
}
