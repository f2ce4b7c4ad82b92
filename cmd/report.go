package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/consolidate"
	"github.com/atlas-esg/esia-review/internal/convert"
	"github.com/atlas-esg/esia-review/internal/model"
	"github.com/atlas-esg/esia-review/internal/report"
)

var reportFormats []string

var reportCmd = &cobra.Command{
	Use:   "report <consolidated-file>",
	Short: "Generate reviewer artifacts from consolidated facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		consolidatedPath := args[0]
		result, err := consolidate.ReadResult(consolidatedPath)
		if err != nil {
			return err
		}

		stem := strings.TrimSuffix(filepath.Base(consolidatedPath), "_consolidated.json")
		outDir := filepath.Dir(consolidatedPath)

		meta, err := convert.ReadMeta(filepath.Join(outDir, stem+"_meta.json"))
		if err != nil {
			return eris.Wrap(err, "read document metadata")
		}

		formats := reportFormats
		if len(formats) == 0 {
			formats = cfg.Report.Formats
		}

		var written []string
		for _, format := range formats {
			switch format {
			case "xlsx":
				path := filepath.Join(outDir, stem+"_register.xlsx")
				if err := report.WriteRegister(path, meta, *result); err != nil {
					return err
				}
				written = append(written, path)
			case "html":
				path := filepath.Join(outDir, stem+"_dashboard.html")
				if err := report.WriteDashboard(path, meta, *result); err != nil {
					return err
				}
				written = append(written, path)
			case "md":
				path := filepath.Join(outDir, stem+"_verification.md")
				if err := report.WriteVerification(path, meta, *result, nil, model.TokenUsage{}); err != nil {
					return err
				}
				written = append(written, path)
			default:
				return eris.Errorf("unknown report format %q", format)
			}
		}

		zap.L().Info("reports written",
			zap.Int("facts", len(result.Facts)),
			zap.Int("conflicts", result.Conflicts),
			zap.Strings("artifacts", written),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportFormats, "format", nil, "formats to write: xlsx, html, md (default from config)")
	rootCmd.AddCommand(reportCmd)
}
