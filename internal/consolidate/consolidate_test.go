package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

func newTestConsolidator(t *testing.T) *Consolidator {
	t.Helper()
	c, err := New(config.ConsolidateConfig{Tolerance: 0.05, MaxEvidence: 3}, nil)
	require.NoError(t, err)
	return c
}

func occ(name, rawValue, rawUnit string, page int) model.FactOccurrence {
	return model.FactOccurrence{
		Name:     name,
		Type:     model.FactTypeQuantity,
		RawValue: rawValue,
		RawUnit:  rawUnit,
		Page:     page,
		ChunkID:  "c0001",
	}
}

func catOcc(name, rawValue string, page int) model.FactOccurrence {
	return model.FactOccurrence{
		Name:     name,
		Type:     model.FactTypeCategorical,
		RawValue: rawValue,
		Page:     page,
		ChunkID:  "c0001",
	}
}

func TestMerge_AgreeingQuantitiesAcrossUnits(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("Project Area", "120", "ha", 3),
		occ("project area", "1.2", "km2", 47),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]

	assert.Equal(t, "project area", fact.Signature)
	assert.Equal(t, model.FactTypeQuantity, fact.Type)
	assert.False(t, fact.Conflict, "1.2 km2 equals 120 ha, no conflict expected")
	require.NotNil(t, fact.Value)
	assert.InDelta(t, 120, *fact.Value, 1e-6)
	assert.Equal(t, "ha", fact.Unit)
	assert.Equal(t, []int{3, 47}, fact.Pages)
	assert.Zero(t, result.Conflicts)
	assert.Zero(t, result.Skipped)
}

func TestMerge_QuantityConflictBeyondTolerance(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("water demand", "1000", "m3/d", 12),
		occ("Water Demand", "1500", "m3/d", 88),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]

	assert.True(t, fact.Conflict)
	assert.Contains(t, fact.ConflictReason, "beyond tolerance")
	require.NotNil(t, fact.Value)
	assert.InDelta(t, 1250, *fact.Value, 1e-6)
	assert.InDelta(t, 1000, *fact.Min, 1e-6)
	assert.InDelta(t, 1500, *fact.Max, 1e-6)
	assert.Equal(t, 1, result.Conflicts)
}

func TestMerge_WithinTolerance(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("installed capacity", "100", "MW", 5),
		occ("installed capacity", "102", "MW", 30),
	})

	require.Len(t, result.Facts, 1)
	assert.False(t, result.Facts[0].Conflict, "2% spread is inside the 5% tolerance")
}

func TestMerge_CrossDimensionIsConflictNotConversion(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("site footprint", "120", "ha", 3),
		occ("site footprint", "50", "MW", 9),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]

	assert.True(t, fact.Conflict)
	assert.Contains(t, fact.ConflictReason, "unit mismatch")
	// Both occurrences stay attached for the reviewer.
	assert.Len(t, fact.Occurrences, 2)
}

func TestMerge_UnrecognizedUnit(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("access road length", "12", "km", 3),
		occ("access road length", "7", "furlongs", 9),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]
	assert.True(t, fact.Conflict)
	assert.Contains(t, fact.ConflictReason, `unrecognized unit "furlongs"`)
}

func TestMerge_UnitlessReadAsCanonical(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("habitat cleared", "45", "ha", 10),
		occ("habitat cleared", "45", "", 62),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]
	assert.False(t, fact.Conflict)
	require.NotNil(t, fact.Value)
	assert.InDelta(t, 45, *fact.Value, 1e-6)
	assert.Equal(t, "ha", fact.Unit)
}

func TestMerge_CategoricalAgreement(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		catOcc("fuel type", "Diesel", 4),
		catOcc("fuel type", "diesel", 19),
		catOcc("Fuel Type", "  diesel ", 33),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]

	assert.Equal(t, model.FactTypeCategorical, fact.Type)
	assert.False(t, fact.Conflict)
	assert.Equal(t, "Diesel", fact.ValueText, "modal spelling is the first seen")
}

func TestMerge_CategoricalConflict(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		catOcc("fuel type", "diesel", 4),
		catOcc("fuel type", "heavy fuel oil", 87),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]

	assert.True(t, fact.Conflict)
	assert.Contains(t, fact.ConflictReason, "conflicting values")
	assert.Contains(t, fact.ConflictReason, "diesel")
	assert.Contains(t, fact.ConflictReason, "heavy fuel oil")
}

func TestMerge_EmptyNameSkipped(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("", "120", "ha", 3),
		occ("---", "50", "ha", 4),
		occ("project area", "120", "ha", 5),
	})

	require.Len(t, result.Facts, 1)
	assert.Equal(t, 2, result.Skipped)
}

func TestMerge_UnparseableQuantitySkipped(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("water demand", "to be confirmed", "m3/d", 3),
		occ("water demand", "1200", "m3/d", 9),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, fact.Conflict)
	require.NotNil(t, fact.Value)
	assert.InDelta(t, 1200, *fact.Value, 1e-6)
}

func TestMerge_GroupWithNoParseableOccurrencesDropped(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("water demand", "TBD", "", 3),
		occ("water demand", "see annex", "", 9),
	})

	assert.Empty(t, result.Facts)
	assert.Equal(t, 2, result.Skipped)
}

func TestMerge_PreservesFirstSeenOrder(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("zulu fact", "1", "ha", 1),
		occ("alpha fact", "2", "ha", 2),
		occ("zulu fact", "1", "ha", 3),
	})

	require.Len(t, result.Facts, 2)
	assert.Equal(t, "zulu fact", result.Facts[0].Signature)
	assert.Equal(t, "alpha fact", result.Facts[1].Signature)
}

func TestMerge_EvidenceCappedAndPageOrdered(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("project area", "120", "ha", 40),
		occ("project area", "120", "ha", 3),
		occ("project area", "120", "ha", 22),
		occ("project area", "120", "ha", 90),
	})

	require.Len(t, result.Facts, 1)
	evidence := result.Facts[0].Evidence
	require.Len(t, evidence, 3)
	assert.Equal(t, 3, evidence[0].Page)
	assert.Equal(t, 22, evidence[1].Page)
	assert.Equal(t, 40, evidence[2].Page)
}

func TestMerge_RegistryCategorizes(t *testing.T) {
	registry, err := archetype.Load("", "")
	require.NoError(t, err)

	c, err := New(config.ConsolidateConfig{}, registry)
	require.NoError(t, err)

	result := c.Merge([]model.FactOccurrence{
		occ("Project Footprint", "120", "ha", 3),
	})

	require.Len(t, result.Facts, 1)
	fact := result.Facts[0]
	assert.Equal(t, "Project Description", fact.Category)
	assert.Equal(t, "footprint", fact.Subcategory)
}

func TestMerge_CanonicalNameIsModalSpelling(t *testing.T) {
	c := newTestConsolidator(t)

	result := c.Merge([]model.FactOccurrence{
		occ("Project Area", "120", "ha", 1),
		occ("project area", "120", "ha", 2),
		occ("project area", "120", "ha", 3),
	})

	require.Len(t, result.Facts, 1)
	assert.Equal(t, "project area", result.Facts[0].CanonicalName)
}

func TestMerge_Empty(t *testing.T) {
	c := newTestConsolidator(t)
	result := c.Merge(nil)
	assert.Empty(t, result.Facts)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Conflicts)
}
