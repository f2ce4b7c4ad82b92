package convert

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tsawler/tabula/docx"

	"github.com/atlas-esg/esia-review/internal/model"
)

// tabulaDOCX extracts DOCX text. Word documents have no fixed pagination, so
// the whole document becomes one logical page.
type tabulaDOCX struct{}

func (t *tabulaDOCX) Convert(ctx context.Context, path string) (*model.Document, error) {
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "convert: cancelled")
	}

	r, err := docx.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: open docx %s", path)
	}
	defer r.Close()

	text, err := r.Text()
	if err != nil {
		return nil, eris.Wrapf(err, "convert: extract docx text %s", path)
	}

	var pages []model.PageText
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		pages = append(pages, model.PageText{Number: 1, Text: trimmed})
	}

	return newDocument(path, "docx", "tabula", pages)
}
