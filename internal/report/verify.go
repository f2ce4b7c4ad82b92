package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

// FormatVerification generates a human-readable verification report.
func FormatVerification(meta *model.DocumentMeta, result model.ConsolidationResult, stages []model.StageResult, totalUsage model.TokenUsage) string {
	var b strings.Builder

	title := meta.Title
	if title == "" {
		title = meta.Path
	}
	fmt.Fprintf(&b, "# Verification Report: %s\n", title)
	fmt.Fprintf(&b, "Document: %s\n", meta.Path)
	fmt.Fprintf(&b, "Checksum: %s\n\n", meta.Checksum)

	// Summary.
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Pages: %d\n", meta.Pages)
	fmt.Fprintf(&b, "- Chunks: %d\n", meta.Chunks)
	fmt.Fprintf(&b, "- Facts: %d\n", len(result.Facts))
	fmt.Fprintf(&b, "- Conflicts: %d\n", result.Conflicts)
	fmt.Fprintf(&b, "- Skipped occurrences: %d\n", result.Skipped)
	fmt.Fprintf(&b, "- Token usage: %d input, %d output\n",
		totalUsage.InputTokens, totalUsage.OutputTokens)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n\n", totalUsage.CostUSD)

	// Stage results.
	b.WriteString("## Stages\n")
	for _, s := range stages {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", s.Name, s.Status, s.Duration)
		if s.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", s.Error)
		}
	}
	b.WriteString("\n")

	// Conflicts first: they are what the reviewer has to resolve.
	b.WriteString("## Conflicts\n")
	conflictCount := 0
	for _, fact := range result.Facts {
		if !fact.Conflict {
			continue
		}
		conflictCount++
		fmt.Fprintf(&b, "- **%s**: %s\n", fact.CanonicalName, fact.ConflictReason)
		for _, occ := range fact.Occurrences {
			fmt.Fprintf(&b, "  - p.%d: %q", occ.Page, occ.RawValue)
			if occ.RawUnit != "" {
				fmt.Fprintf(&b, " %s", occ.RawUnit)
			}
			b.WriteString("\n")
		}
	}
	if conflictCount == 0 {
		b.WriteString("No conflicts detected.\n")
	}
	b.WriteString("\n")

	// Agreed facts.
	b.WriteString("## Verified Facts\n")
	verified := 0
	for _, fact := range result.Facts {
		if fact.Conflict {
			continue
		}
		verified++
		fmt.Fprintf(&b, "- **%s**: %s", fact.CanonicalName, factValue(fact))
		if fact.Unit != "" {
			fmt.Fprintf(&b, " %s", fact.Unit)
		}
		fmt.Fprintf(&b, " [pages %s, %d occurrences]\n",
			formatPages(fact.Pages), len(fact.Occurrences))
	}
	if verified == 0 {
		b.WriteString("No facts extracted.\n")
	}

	return b.String()
}

// WriteVerification writes the verification report to path.
func WriteVerification(path string, meta *model.DocumentMeta, result model.ConsolidationResult, stages []model.StageResult, totalUsage model.TokenUsage) error {
	text := FormatVerification(meta, result, stages, totalUsage)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
