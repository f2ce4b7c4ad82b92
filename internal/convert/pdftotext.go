package convert

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

// PdfToText converts PDFs using the external pdftotext binary. Useful for
// documents the pure-Go reader cannot parse.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText converter. If binPath is empty,
// "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Convert runs pdftotext -layout and splits stdout on form feeds, which the
// tool emits between pages.
func (p *PdfToText) Convert(ctx context.Context, path string) (*model.Document, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "convert: pdftotext failed for %s: %s", path, stderr.String())
	}

	var pages []model.PageText
	for i, raw := range strings.Split(stdout.String(), "\f") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		pages = append(pages, model.PageText{Number: i + 1, Text: text})
	}

	return newDocument(path, "pdf", "pdftotext", pages)
}
