package convert

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tsawler/tabula/layout"
	"github.com/tsawler/tabula/reader"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/model"
)

// tabulaPDF extracts PDF text with the pure-Go tabula reader, running layout
// analysis per page so headings and lists survive as markdown structure.
type tabulaPDF struct{}

func (t *tabulaPDF) Convert(ctx context.Context, path string) (*model.Document, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: open pdf %s", path)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, eris.Wrapf(err, "convert: page count %s", path)
	}

	analyzer := layout.NewAnalyzer()
	pages := make([]model.PageText, 0, count)
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "convert: cancelled")
		}

		page, err := r.GetPage(i)
		if err != nil {
			zap.L().Warn("skipping unreadable page",
				zap.String("path", path),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}

		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			zap.L().Warn("skipping page with unreadable content stream",
				zap.String("path", path),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		if len(fragments) == 0 {
			continue
		}

		width, werr := page.Width()
		height, herr := page.Height()
		if werr != nil || herr != nil {
			// Fall back to US Letter when the media box is broken.
			width, height = 612, 792
		}

		result := analyzer.Analyze(fragments, width, height)
		text := strings.TrimSpace(result.GetMarkdown())
		if text == "" {
			continue
		}

		pages = append(pages, model.PageText{Number: i + 1, Text: text})
	}

	return newDocument(path, "pdf", "tabula", pages)
}
