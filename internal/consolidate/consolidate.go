// Package consolidate merges independently extracted fact occurrences into
// deduplicated, unit-normalized, conflict-flagged records.
package consolidate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/archetype"
	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

const defaultTolerance = 0.05

// Consolidator merges fact occurrences by signature.
type Consolidator struct {
	units       *UnitTable
	registry    *archetype.Registry
	tolerance   float64
	maxEvidence int
}

// New creates a Consolidator. The registry may be nil, in which case facts
// carry no category.
func New(cfg config.ConsolidateConfig, registry *archetype.Registry) (*Consolidator, error) {
	units, err := LoadUnitTable()
	if err != nil {
		return nil, err
	}

	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	maxEvidence := cfg.MaxEvidence
	if maxEvidence <= 0 {
		maxEvidence = 3
	}

	return &Consolidator{
		units:       units,
		registry:    registry,
		tolerance:   tolerance,
		maxEvidence: maxEvidence,
	}, nil
}

// Merge groups occurrences by signature and produces one consolidated fact
// per group. A malformed occurrence is skipped and logged, never fatal; a
// group whose occurrences are all malformed is dropped.
func (c *Consolidator) Merge(occurrences []model.FactOccurrence) model.ConsolidationResult {
	var order []string
	groups := make(map[string][]model.FactOccurrence)

	result := model.ConsolidationResult{}

	for _, occ := range occurrences {
		sig := model.Signature(occ.Name)
		if sig == "" {
			zap.L().Warn("skipping occurrence with empty fact name",
				zap.String("chunk", occ.ChunkID),
				zap.Int("page", occ.Page),
			)
			result.Skipped++
			continue
		}
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], occ)
	}

	for _, sig := range order {
		fact, skipped := c.mergeGroup(sig, groups[sig])
		result.Skipped += skipped
		if fact == nil {
			continue
		}
		if fact.Conflict {
			result.Conflicts++
		}
		result.Facts = append(result.Facts, *fact)
	}

	return result
}

func (c *Consolidator) mergeGroup(sig string, group []model.FactOccurrence) (*model.ConsolidatedFact, int) {
	fact := &model.ConsolidatedFact{
		Signature:     sig,
		CanonicalName: canonicalName(group),
		Type:          majorityType(group),
	}

	var skipped int
	if fact.Type == model.FactTypeQuantity {
		skipped = c.mergeQuantity(fact, group)
	} else {
		c.mergeCategorical(fact, group)
	}

	if len(fact.Occurrences) == 0 {
		zap.L().Warn("dropping fact with no parseable occurrences",
			zap.String("signature", sig),
			zap.Int("occurrences", len(group)),
		)
		return nil, skipped
	}

	fact.Evidence = collectEvidence(fact.Occurrences, c.maxEvidence)
	fact.Pages = collectPages(fact.Occurrences)

	if c.registry != nil {
		if cat, ok := c.registry.Categorize(sig); ok {
			fact.Category = cat.Chapter
			fact.Subcategory = cat.Subcategory
		}
	}

	return fact, skipped
}

// mergeQuantity parses and unit-normalizes each occurrence, then compares
// the group. Returns the number of skipped (unparseable) occurrences.
func (c *Consolidator) mergeQuantity(fact *model.ConsolidatedFact, group []model.FactOccurrence) int {
	type reading struct {
		occ       model.FactOccurrence
		parsed    parsedQuantity
		dimension string // empty when the unit is unknown or absent
	}

	var readings []reading
	skipped := 0
	for _, occ := range group {
		parsed, err := ParseQuantity(occ.RawValue, occ.RawUnit)
		if err != nil {
			zap.L().Warn("skipping unparseable quantity occurrence",
				zap.String("fact", fact.Signature),
				zap.String("raw_value", occ.RawValue),
				zap.Int("page", occ.Page),
				zap.Error(err),
			)
			skipped++
			continue
		}

		r := reading{occ: occ, parsed: parsed}
		if parsed.Unit != "" {
			if dim, _, _, ok := c.units.Resolve(parsed.Unit); ok {
				r.dimension = dim
			}
		}
		readings = append(readings, r)
	}

	if len(readings) == 0 {
		return skipped
	}

	// The group's dimension comes from the first occurrence with a known
	// unit. Unitless occurrences are read as already being in the
	// canonical unit of that dimension.
	var groupDim, groupCanonical string
	for _, r := range readings {
		if r.dimension != "" {
			_, canonical, _, _ := c.units.Resolve(r.parsed.Unit)
			groupDim, groupCanonical = r.dimension, canonical
			break
		}
	}

	var values, mins, maxs []float64
	var conflicts []string
	for i := range readings {
		r := &readings[i]
		value, minV, maxV := r.parsed.Value, r.parsed.Min, r.parsed.Max

		switch {
		case r.dimension == "" && r.parsed.Unit != "" && groupDim != "":
			conflicts = appendUnique(conflicts, fmt.Sprintf("unrecognized unit %q", r.parsed.Unit))
		case r.dimension != "" && r.dimension != groupDim:
			conflicts = appendUnique(conflicts, fmt.Sprintf("unit mismatch: %s vs %s", groupCanonical, r.parsed.Unit))
		case r.dimension != "":
			_, _, factor, _ := c.units.Resolve(r.parsed.Unit)
			value *= factor
			minV *= factor
			maxV *= factor
		}

		v := value
		r.occ.NormalizedValue = &v
		r.occ.NormalizedUnit = groupCanonical
		fact.Occurrences = append(fact.Occurrences, r.occ)

		values = append(values, value)
		mins = append(mins, minV)
		maxs = append(maxs, maxV)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	minV, maxV := mins[0], maxs[0]
	for i := 1; i < len(mins); i++ {
		if mins[i] < minV {
			minV = mins[i]
		}
		if maxs[i] > maxV {
			maxV = maxs[i]
		}
	}

	fact.Value = &mean
	fact.Min = &minV
	fact.Max = &maxV
	fact.Unit = groupCanonical

	denom := mean
	if denom < 0 {
		denom = -denom
	}
	if denom < 1e-9 {
		denom = 1e-9
	}
	if spread := (maxV - minV) / denom; spread > c.tolerance {
		conflicts = appendUnique(conflicts, fmt.Sprintf(
			"values differ beyond tolerance: min %.4g, max %.4g %s", minV, maxV, fact.Unit))
	}

	if len(conflicts) > 0 {
		fact.Conflict = true
		fact.ConflictReason = strings.Join(conflicts, "; ")
	}
	return skipped
}

// mergeCategorical compares normalized string values; more than one distinct
// value is a conflict. The consolidated value is the modal spelling.
func (c *Consolidator) mergeCategorical(fact *model.ConsolidatedFact, group []model.FactOccurrence) {
	counts := make(map[string]int)
	spelling := make(map[string]string)
	var distinct []string

	for _, occ := range group {
		norm := foldCategorical(occ.RawValue)
		if norm == "" {
			zap.L().Warn("skipping empty categorical occurrence",
				zap.String("fact", fact.Signature),
				zap.Int("page", occ.Page),
			)
			continue
		}
		fact.Occurrences = append(fact.Occurrences, occ)
		if counts[norm] == 0 {
			distinct = append(distinct, norm)
			spelling[norm] = strings.TrimSpace(occ.RawValue)
		}
		counts[norm]++
	}

	if len(fact.Occurrences) == 0 {
		return
	}

	// Modal value; ties broken by first appearance.
	best := distinct[0]
	for _, v := range distinct[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	fact.ValueText = spelling[best]

	if len(distinct) > 1 {
		display := make([]string, len(distinct))
		for i, v := range distinct {
			display[i] = spelling[v]
		}
		fact.Conflict = true
		fact.ConflictReason = "conflicting values: " + strings.Join(display, " | ")
	}
}

func foldCategorical(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func majorityType(group []model.FactOccurrence) model.FactType {
	quantity := 0
	for _, occ := range group {
		if occ.Type == model.FactTypeQuantity {
			quantity++
		}
	}
	// Ties lean quantity: a numeric reading is more useful to a reviewer
	// than a verbatim string.
	if quantity*2 >= len(group) {
		return model.FactTypeQuantity
	}
	return model.FactTypeCategorical
}

// canonicalName picks the modal raw spelling, ties broken by first mention.
func canonicalName(group []model.FactOccurrence) string {
	counts := make(map[string]int)
	var order []string
	for _, occ := range group {
		name := strings.TrimSpace(occ.Name)
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}
	best := order[0]
	for _, name := range order[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

// collectEvidence keeps the first n occurrences by page order for reviewer
// traceability.
func collectEvidence(occs []model.FactOccurrence, n int) []model.EvidenceRef {
	sorted := make([]model.FactOccurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	var out []model.EvidenceRef
	for _, occ := range sorted {
		if len(out) >= n {
			break
		}
		text := occ.Evidence
		if text == "" {
			text = occ.RawValue
		}
		out = append(out, model.EvidenceRef{Text: text, Page: occ.Page, ChunkID: occ.ChunkID})
	}
	return out
}

func collectPages(occs []model.FactOccurrence) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, occ := range occs {
		if occ.Page > 0 && !seen[occ.Page] {
			seen[occ.Page] = true
			pages = append(pages, occ.Page)
		}
	}
	sort.Ints(pages)
	return pages
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
