package main

import (
	"bufio"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/model"
)

var batchList string

var batchCmd = &cobra.Command{
	Use:   "batch [documents...]",
	Short: "Analyze multiple documents concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		docs, err := collectDocuments(args, batchList)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return eris.New("no documents given: pass paths as arguments or use --list")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		outcomes := env.Pipeline.RunBatch(ctx, docs, cfg.Batch.MaxConcurrentDocuments)

		succeeded, failed := 0, 0
		for _, o := range outcomes {
			if o.Err != "" {
				failed++
			} else {
				succeeded++
			}
		}
		zap.L().Info("batch finished",
			zap.Int("documents", len(docs)),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
		)

		if failed > 0 {
			return eris.Errorf("%d of %d documents failed", failed, len(docs))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchList, "list", "", "file with one document path per line")
	rootCmd.AddCommand(batchCmd)
}

// collectDocuments merges positional paths with the optional list file.
// Blank lines and # comments in the list file are skipped.
func collectDocuments(args []string, listPath string) ([]model.DocumentRef, error) {
	var docs []model.DocumentRef
	for _, path := range args {
		docs = append(docs, model.DocumentRef{Path: path})
	}

	if listPath == "" {
		return docs, nil
	}

	f, err := os.Open(listPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open list %s", listPath)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		docs = append(docs, model.DocumentRef{Path: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read list %s", listPath)
	}
	return docs, nil
}
