package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/atlas-esg/esia-review/internal/model"
)

// BaselineFact is one row read back from a previously written register.
type BaselineFact struct {
	Name      string
	Type      model.FactType
	Value     *float64
	ValueText string
	Unit      string
}

// BaselineChange pairs a current fact with its baseline counterpart.
type BaselineChange struct {
	Name     string
	Old      string
	New      string
	Unit     string
	RelDelta float64
}

// BaselineDiff is the result of comparing a run against an earlier register.
type BaselineDiff struct {
	Added   []string
	Removed []string
	Changed []BaselineChange
}

// ReadBaseline reads the Facts sheet of a register written by WriteRegister,
// keyed by fact signature.
func ReadBaseline(path string) (map[string]BaselineFact, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "baseline: open %s", path)
	}

	sheet, ok := f.Sheet[factsSheet]
	if !ok {
		return nil, eris.Errorf("baseline: sheet %q not found in %s", factsSheet, path)
	}

	baseline := make(map[string]BaselineFact)
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := make([]string, len(factHeader))
		for j := range cells {
			if j < len(row.Cells) {
				cells[j] = row.Cells[j].String()
			}
		}
		if strings.TrimSpace(cells[0]) == "" {
			continue
		}

		bf := BaselineFact{
			Name: cells[0],
			Type: model.FactType(cells[1]),
			Unit: cells[5],
		}
		if bf.Type == model.FactTypeQuantity {
			if v, err := strconv.ParseFloat(cells[4], 64); err == nil {
				bf.Value = &v
			}
		} else {
			bf.ValueText = cells[4]
		}
		baseline[model.Signature(bf.Name)] = bf
	}
	return baseline, nil
}

// Diff compares current facts against a baseline register. Quantities whose
// relative delta stays within tolerance are treated as unchanged.
func Diff(current []model.ConsolidatedFact, baseline map[string]BaselineFact, tolerance float64) BaselineDiff {
	var diff BaselineDiff

	seen := make(map[string]bool, len(current))
	for _, fact := range current {
		seen[fact.Signature] = true
		old, ok := baseline[fact.Signature]
		if !ok {
			diff.Added = append(diff.Added, fact.CanonicalName)
			continue
		}
		if change, changed := compareFact(fact, old, tolerance); changed {
			diff.Changed = append(diff.Changed, change)
		}
	}

	for sig, old := range baseline {
		if !seen[sig] {
			diff.Removed = append(diff.Removed, old.Name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return diff.Changed[i].Name < diff.Changed[j].Name
	})
	return diff
}

func compareFact(fact model.ConsolidatedFact, old BaselineFact, tolerance float64) (BaselineChange, bool) {
	if fact.Type == model.FactTypeCategorical || old.Type == model.FactTypeCategorical {
		oldText := old.ValueText
		newText := factValue(fact)
		if strings.EqualFold(strings.TrimSpace(oldText), strings.TrimSpace(newText)) {
			return BaselineChange{}, false
		}
		return BaselineChange{Name: fact.CanonicalName, Old: oldText, New: newText}, true
	}

	if fact.Value == nil || old.Value == nil {
		return BaselineChange{}, false
	}

	if fact.Unit != old.Unit {
		return BaselineChange{
			Name: fact.CanonicalName,
			Old:  fmt.Sprintf("%.4g %s", *old.Value, old.Unit),
			New:  fmt.Sprintf("%.4g %s", *fact.Value, fact.Unit),
		}, true
	}

	denom := math.Max(math.Abs(*old.Value), 1e-9)
	rel := math.Abs(*fact.Value-*old.Value) / denom
	if rel <= tolerance {
		return BaselineChange{}, false
	}
	return BaselineChange{
		Name:     fact.CanonicalName,
		Old:      fmt.Sprintf("%.4g", *old.Value),
		New:      fmt.Sprintf("%.4g", *fact.Value),
		Unit:     fact.Unit,
		RelDelta: rel,
	}, true
}

// FormatDiff renders a baseline comparison as markdown.
func FormatDiff(diff BaselineDiff) string {
	var b strings.Builder

	b.WriteString("# Baseline Comparison\n\n")
	fmt.Fprintf(&b, "- Added: %d\n", len(diff.Added))
	fmt.Fprintf(&b, "- Removed: %d\n", len(diff.Removed))
	fmt.Fprintf(&b, "- Changed: %d\n\n", len(diff.Changed))

	if len(diff.Added) > 0 {
		b.WriteString("## Added\n")
		for _, name := range diff.Added {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}
	if len(diff.Removed) > 0 {
		b.WriteString("## Removed\n")
		for _, name := range diff.Removed {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}
	if len(diff.Changed) > 0 {
		b.WriteString("## Changed\n")
		for _, c := range diff.Changed {
			fmt.Fprintf(&b, "- **%s**: %s -> %s", c.Name, c.Old, c.New)
			if c.Unit != "" {
				fmt.Fprintf(&b, " %s", c.Unit)
			}
			if c.RelDelta > 0 {
				fmt.Fprintf(&b, " (%.1f%%)", c.RelDelta*100)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
