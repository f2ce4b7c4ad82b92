package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/convert"
	"github.com/atlas-esg/esia-review/internal/model"
)

var convertOut string

var convertCmd = &cobra.Command{
	Use:   "convert <document>",
	Short: "Convert a PDF or DOCX document to chunked text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		converter, err := convert.New(cfg.Convert)
		if err != nil {
			return err
		}

		document, err := converter.Convert(ctx, path)
		if err != nil {
			return err
		}

		chunker := convert.NewChunker(cfg.Chunk)
		chunks := chunker.Chunk(document)

		stem := model.DocumentRef{Path: path}.Stem()
		outDir := convertOut
		if outDir == "" {
			outDir = cfg.Report.OutDir
		}

		chunksPath := filepath.Join(outDir, stem+".chunks.jsonl")
		if err := convert.WriteChunks(chunksPath, chunks); err != nil {
			return err
		}
		metaPath := filepath.Join(outDir, stem+"_meta.json")
		if err := convert.WriteMeta(metaPath, document, chunks, cfg.Chunk); err != nil {
			return err
		}

		zap.L().Info("conversion complete",
			zap.String("document", path),
			zap.Int("pages", document.PageCount()),
			zap.Int("chunks", len(chunks)),
			zap.String("chunks_file", chunksPath),
		)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(convertCmd)
}
