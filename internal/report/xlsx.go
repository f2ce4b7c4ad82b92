// Package report renders reviewer artifacts from consolidation results:
// the XLSX fact register, the HTML dashboard and the verification report.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/atlas-esg/esia-review/internal/model"
)

// factHeader is the column layout of the Facts sheet. The baseline reader
// depends on this order, so changes here are format changes.
var factHeader = []string{
	"Fact", "Type", "Category", "Subcategory", "Value", "Unit",
	"Min", "Max", "Conflict", "Conflict Reason", "Occurrences", "Pages",
}

const (
	factsSheet     = "Facts"
	conflictsSheet = "Conflicts"
	summarySheet   = "Summary"
)

// WriteRegister writes the XLSX fact register.
func WriteRegister(path string, meta *model.DocumentMeta, result model.ConsolidationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return eris.Wrap(err, "report: rename summary sheet")
	}
	if _, err := f.NewSheet(factsSheet); err != nil {
		return eris.Wrap(err, "report: create facts sheet")
	}
	if _, err := f.NewSheet(conflictsSheet); err != nil {
		return eris.Wrap(err, "report: create conflicts sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2F5B3C"}},
	})
	if err != nil {
		return eris.Wrap(err, "report: header style")
	}
	conflictStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FCE4E4"}},
	})
	if err != nil {
		return eris.Wrap(err, "report: conflict style")
	}

	if err := writeSummary(f, meta, result); err != nil {
		return err
	}
	if err := writeFacts(f, factsSheet, result.Facts, headerStyle, conflictStyle); err != nil {
		return err
	}

	var conflicts []model.ConsolidatedFact
	for _, fact := range result.Facts {
		if fact.Conflict {
			conflicts = append(conflicts, fact)
		}
	}
	if err := writeFacts(f, conflictsSheet, conflicts, headerStyle, conflictStyle); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func writeSummary(f *excelize.File, meta *model.DocumentMeta, result model.ConsolidationResult) error {
	rows := [][]any{
		{"Document", meta.Path},
		{"Format", meta.Format},
		{"Converter", meta.Converter},
		{"Pages", meta.Pages},
		{"Chunks", meta.Chunks},
		{"Checksum", meta.Checksum},
		{"Facts", len(result.Facts)},
		{"Conflicts", result.Conflicts},
		{"Skipped occurrences", result.Skipped},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return eris.Wrap(err, "report: summary cell name")
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return eris.Wrap(err, "report: write summary row")
		}
	}
	return nil
}

func writeFacts(f *excelize.File, sheet string, facts []model.ConsolidatedFact, headerStyle, conflictStyle int) error {
	header := make([]any, len(factHeader))
	for i, h := range factHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrapf(err, "report: write %s header", sheet)
	}

	lastCol, err := excelize.CoordinatesToCellName(len(factHeader), 1)
	if err != nil {
		return eris.Wrap(err, "report: header cell name")
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
		return eris.Wrapf(err, "report: style %s header", sheet)
	}

	for i, fact := range facts {
		rowNum := i + 2
		row := factRow(fact)
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return eris.Wrap(err, "report: row cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return eris.Wrapf(err, "report: write %s row %d", sheet, rowNum)
		}

		if fact.Conflict {
			end, err := excelize.CoordinatesToCellName(len(factHeader), rowNum)
			if err != nil {
				return eris.Wrap(err, "report: conflict cell name")
			}
			if err := f.SetCellStyle(sheet, cell, end, conflictStyle); err != nil {
				return eris.Wrapf(err, "report: style conflict row %d", rowNum)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 36); err != nil {
		return eris.Wrapf(err, "report: set %s col width", sheet)
	}
	if err := f.SetColWidth(sheet, "J", "J", 48); err != nil {
		return eris.Wrapf(err, "report: set %s col width", sheet)
	}

	// Keep the header visible while scrolling.
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return eris.Wrapf(err, "report: freeze %s header", sheet)
	}

	return nil
}

func factRow(fact model.ConsolidatedFact) []any {
	var value, minV, maxV any
	if fact.Type == model.FactTypeQuantity {
		if fact.Value != nil {
			value = *fact.Value
		}
		if fact.Min != nil {
			minV = *fact.Min
		}
		if fact.Max != nil {
			maxV = *fact.Max
		}
	} else {
		value = fact.ValueText
	}

	return []any{
		fact.CanonicalName,
		string(fact.Type),
		fact.Category,
		fact.Subcategory,
		value,
		fact.Unit,
		minV,
		maxV,
		fact.Conflict,
		fact.ConflictReason,
		len(fact.Occurrences),
		formatPages(fact.Pages),
	}
}

func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}
