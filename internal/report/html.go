package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

//go:embed dashboard.tmpl
var dashboardTmpl string

var dashboard = template.Must(template.New("dashboard").Parse(dashboardTmpl))

type dashboardData struct {
	Title         string
	Path          string
	Pages         int
	Chunks        int
	GeneratedAt   string
	FactCount     int
	ConflictCount int
	SkippedCount  int
	Chapters      []dashboardChapter
}

type dashboardChapter struct {
	Title string
	Facts []dashboardFact
}

type dashboardFact struct {
	Name           string
	Value          string
	Unit           string
	Pages          string
	Conflict       bool
	ConflictReason string
	Evidence       []model.EvidenceRef
}

// WriteDashboard renders the standalone HTML review page.
func WriteDashboard(path string, meta *model.DocumentMeta, result model.ConsolidationResult) error {
	data := dashboardData{
		Title:         meta.Title,
		Path:          meta.Path,
		Pages:         meta.Pages,
		Chunks:        meta.Chunks,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04"),
		FactCount:     len(result.Facts),
		ConflictCount: result.Conflicts,
		SkippedCount:  result.Skipped,
		Chapters:      groupChapters(result.Facts),
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer out.Close()

	if err := dashboard.Execute(out, data); err != nil {
		return eris.Wrap(err, "report: render dashboard")
	}
	return nil
}

// groupChapters buckets facts by category. Uncategorized facts land in a
// trailing "Other" chapter so nothing disappears from the page.
func groupChapters(facts []model.ConsolidatedFact) []dashboardChapter {
	byCategory := map[string][]dashboardFact{}
	var order []string
	for _, fact := range facts {
		cat := fact.Category
		if cat == "" {
			cat = "Other"
		}
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], dashboardFact{
			Name:           fact.CanonicalName,
			Value:          factValue(fact),
			Unit:           fact.Unit,
			Pages:          formatPages(fact.Pages),
			Conflict:       fact.Conflict,
			ConflictReason: fact.ConflictReason,
			Evidence:       fact.Evidence,
		})
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i] == "Other" {
			return false
		}
		if order[j] == "Other" {
			return true
		}
		return i < j
	})

	chapters := make([]dashboardChapter, 0, len(order))
	for _, cat := range order {
		chapters = append(chapters, dashboardChapter{Title: cat, Facts: byCategory[cat]})
	}
	return chapters
}

func factValue(fact model.ConsolidatedFact) string {
	if fact.Type == model.FactTypeCategorical {
		return fact.ValueText
	}
	if fact.Value == nil {
		return ""
	}
	if fact.Min != nil && fact.Max != nil && *fact.Min != *fact.Max {
		return fmt.Sprintf("%.4g (%.4g to %.4g)", *fact.Value, *fact.Min, *fact.Max)
	}
	return fmt.Sprintf("%.4g", *fact.Value)
}
