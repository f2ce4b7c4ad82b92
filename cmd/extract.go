package main

import (
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/convert"
	"github.com/atlas-esg/esia-review/internal/extract"
	"github.com/atlas-esg/esia-review/internal/llm"
)

var extractCmd = &cobra.Command{
	Use:   "extract <chunks-file>",
	Short: "Extract fact occurrences from a chunk file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		chunksPath := args[0]
		chunks, err := convert.ReadChunks(chunksPath)
		if err != nil {
			return err
		}

		registry, err := initRegistry()
		if err != nil {
			return err
		}

		client, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}

		extractor := extract.New(client, registry, cfg.Extract, cfg.LLM)
		result, err := extractor.ExtractChunks(ctx, chunks)
		if err != nil {
			return err
		}

		stem := strings.TrimSuffix(filepath.Base(chunksPath), ".chunks.jsonl")
		outDir := filepath.Dir(chunksPath)

		factsPath := filepath.Join(outDir, stem+"_facts.json")
		if err := extract.WriteFacts(factsPath, result.Occurrences); err != nil {
			return err
		}
		if len(result.DeadLetters) > 0 && cfg.Extract.DeadLetter {
			dlPath := filepath.Join(outDir, stem+"_dead_letters.jsonl")
			if err := extract.WriteDeadLetters(dlPath, result.DeadLetters); err != nil {
				return err
			}
		}

		zap.L().Info("extraction complete",
			zap.Int("chunks", len(chunks)),
			zap.Int("occurrences", len(result.Occurrences)),
			zap.Int("dead_letters", len(result.DeadLetters)),
			zap.Int64("input_tokens", result.Usage.InputTokens),
			zap.Int64("output_tokens", result.Usage.OutputTokens),
			zap.String("facts_file", factsPath),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
