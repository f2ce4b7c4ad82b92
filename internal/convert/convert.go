// Package convert turns PDF and DOCX reports into per-page text documents
// and chunk files for the extraction stage.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tsawler/tabula/format"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

// Converter extracts text content from a source document.
type Converter interface {
	Convert(ctx context.Context, path string) (*model.Document, error)
}

// New creates a Converter that dispatches on detected file format. The
// provider setting selects the PDF backend; DOCX always uses the pure-Go
// reader.
func New(cfg config.ConvertConfig) (Converter, error) {
	var pdf Converter
	switch cfg.Provider {
	case "tabula", "":
		pdf = &tabulaPDF{}
	case "pdftotext":
		pdf = NewPdfToText(cfg.PdfToTextPath)
	default:
		return nil, eris.Errorf("convert: unknown provider %q", cfg.Provider)
	}

	return &dispatcher{pdf: pdf, docx: &tabulaDOCX{}}, nil
}

// dispatcher routes a file to the right backend by format.
type dispatcher struct {
	pdf  Converter
	docx Converter
}

func (d *dispatcher) Convert(ctx context.Context, path string) (*model.Document, error) {
	switch format.Detect(path) {
	case format.PDF:
		return d.pdf.Convert(ctx, path)
	case format.DOCX:
		return d.docx.Convert(ctx, path)
	default:
		return nil, eris.Errorf("convert: unsupported format for %s", path)
	}
}

// fileChecksum returns the hex sha256 of the file contents. The checksum is
// recorded in the meta sidecar so stale artifacts are detectable.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "convert: open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "convert: checksum %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newDocument(path, formatName, converter string, pages []model.PageText) (*model.Document, error) {
	sum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}
	return &model.Document{
		Path:        path,
		Format:      formatName,
		Converter:   converter,
		Pages:       pages,
		Checksum:    sum,
		ConvertedAt: time.Now().UTC(),
	}, nil
}
