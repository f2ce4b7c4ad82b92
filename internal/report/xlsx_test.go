package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/atlas-esg/esia-review/internal/model"
)

func TestWriteRegister_SheetsAndHeader(t *testing.T) {
	conflicted := quantityFact("intake flow", 1250, "m3/d")
	conflicted.Conflict = true
	conflicted.ConflictReason = "values disagree beyond tolerance"

	path := writeTestRegister(t, []model.ConsolidatedFact{
		quantityFact("project area", 120, "ha"),
		conflicted,
	})

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	for _, name := range []string{summarySheet, factsSheet, conflictsSheet} {
		_, ok := f.Sheet[name]
		assert.True(t, ok, "missing sheet %s", name)
	}

	facts := f.Sheet[factsSheet]
	require.Len(t, facts.Rows, 3)
	for i, want := range factHeader {
		assert.Equal(t, want, facts.Rows[0].Cells[i].String())
	}

	// Rows keep consolidation order.
	assert.Equal(t, "project area", facts.Rows[1].Cells[0].String())
	assert.Equal(t, "intake flow", facts.Rows[2].Cells[0].String())
	assert.Equal(t, "values disagree beyond tolerance", facts.Rows[2].Cells[9].String())

	// The conflicts sheet only carries conflicted facts.
	conflicts := f.Sheet[conflictsSheet]
	require.Len(t, conflicts.Rows, 2)
	assert.Equal(t, "intake flow", conflicts.Rows[1].Cells[0].String())
}

func TestWriteRegister_SummarySheet(t *testing.T) {
	path := writeTestRegister(t, []model.ConsolidatedFact{
		quantityFact("project area", 120, "ha"),
	})

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	summary := f.Sheet[summarySheet]
	rows := map[string]string{}
	for _, row := range summary.Rows {
		if len(row.Cells) >= 2 {
			rows[row.Cells[0].String()] = row.Cells[1].String()
		}
	}

	assert.Equal(t, "/data/esia.pdf", rows["Document"])
	assert.Equal(t, "pdf", rows["Format"])
	assert.Equal(t, "412", rows["Pages"])
	assert.Equal(t, "1", rows["Facts"])
	assert.Equal(t, "0", rows["Conflicts"])
}

func TestFormatPages(t *testing.T) {
	assert.Equal(t, "", formatPages(nil))
	assert.Equal(t, "3", formatPages([]int{3}))
	assert.Equal(t, "3, 47, 102", formatPages([]int{3, 47, 102}))
}

func TestFactRow_QuantityAndCategorical(t *testing.T) {
	q := quantityFact("project area", 120, "ha")
	row := factRow(q)
	assert.Equal(t, 120.0, row[4])
	assert.Equal(t, "ha", row[5])

	c := categoricalFact("fuel type", "Diesel")
	row = factRow(c)
	assert.Equal(t, "Diesel", row[4])
	assert.Nil(t, row[6])
	assert.Nil(t, row[7])
}
