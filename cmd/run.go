package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/model"
)

var (
	runTitle       string
	runProjectType string
)

var runCmd = &cobra.Command{
	Use:   "run <document>",
	Short: "Run the full analysis for a single document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		doc := model.DocumentRef{
			Path:        args[0],
			Title:       runTitle,
			ProjectType: runProjectType,
		}

		result, err := env.Pipeline.Run(ctx, doc)
		if err != nil {
			return err
		}

		zap.L().Info("analysis finished",
			zap.Int("facts", result.Facts),
			zap.Int("conflicts", result.Conflicts),
			zap.Strings("artifacts", result.Artifacts),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runTitle, "title", "", "document title for reports")
	runCmd.Flags().StringVar(&runProjectType, "project-type", "", "project type for the taxonomy extension")
	rootCmd.AddCommand(runCmd)
}
