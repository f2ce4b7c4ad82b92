package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-esg/esia-review/internal/model"
)

func TestFormatVerification(t *testing.T) {
	conflicted := quantityFact("intake flow", 1250, "m3/d")
	conflicted.Conflict = true
	conflicted.ConflictReason = "values disagree beyond tolerance"
	conflicted.Occurrences = []model.FactOccurrence{
		{Page: 14, RawValue: "1,000", RawUnit: "m3/d"},
		{Page: 88, RawValue: "1,500", RawUnit: "m3/d"},
	}

	result := model.ConsolidationResult{
		Facts:     []model.ConsolidatedFact{quantityFact("project area", 120, "ha"), conflicted},
		Conflicts: 1,
		Skipped:   2,
	}
	stages := []model.StageResult{
		{Name: "convert", Status: model.StageStatusComplete, Duration: 1200},
		{Name: "extract", Status: model.StageStatusFailed, Duration: 300, Error: "provider unavailable"},
	}
	usage := model.TokenUsage{InputTokens: 42000, OutputTokens: 3100, CostUSD: 0.1875}

	out := FormatVerification(testMeta(), result, stages, usage)

	assert.Contains(t, out, "# Verification Report: Kalu River Hydropower ESIA")
	assert.Contains(t, out, "- Pages: 412")
	assert.Contains(t, out, "- Conflicts: 1")
	assert.Contains(t, out, "- Skipped occurrences: 2")
	assert.Contains(t, out, "- Token usage: 42000 input, 3100 output")
	assert.Contains(t, out, "- Estimated cost: $0.1875")
	assert.Contains(t, out, "- convert: complete (1200ms)")
	assert.Contains(t, out, "- extract: failed (300ms)")
	assert.Contains(t, out, "Error: provider unavailable")
	assert.Contains(t, out, "**intake flow**: values disagree beyond tolerance")
	assert.Contains(t, out, `p.14: "1,000" m3/d`)
	assert.Contains(t, out, "**project area**: 120 ha [pages 3, 1 occurrences]")
}

func TestFormatVerification_FallsBackToPathTitle(t *testing.T) {
	meta := testMeta()
	meta.Title = ""
	out := FormatVerification(meta, model.ConsolidationResult{}, nil, model.TokenUsage{})
	assert.Contains(t, out, "# Verification Report: /data/esia.pdf")
	assert.Contains(t, out, "No conflicts detected.")
	assert.Contains(t, out, "No facts extracted.")
}

func TestWriteVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verify.md")
	result := model.ConsolidationResult{
		Facts: []model.ConsolidatedFact{quantityFact("project area", 120, "ha")},
	}
	require.NoError(t, WriteVerification(path, testMeta(), result, nil, model.TokenUsage{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Verified Facts")
}
