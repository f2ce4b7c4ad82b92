package consolidate

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed units.yaml
var unitsYAML []byte

// unitTableFile mirrors the embedded YAML layout.
type unitTableFile struct {
	Dimensions []struct {
		Name      string             `yaml:"name"`
		Canonical string             `yaml:"canonical"`
		Units     map[string]float64 `yaml:"units"`
		Aliases   map[string]string  `yaml:"aliases"`
	} `yaml:"dimensions"`
}

type unitEntry struct {
	dimension string
	canonical string
	factor    float64
}

// UnitTable resolves raw unit strings to a dimension and a conversion factor
// into that dimension's canonical unit.
type UnitTable struct {
	byUnit map[string]unitEntry
}

// LoadUnitTable parses the embedded unit table.
func LoadUnitTable() (*UnitTable, error) {
	var file unitTableFile
	if err := yaml.Unmarshal(unitsYAML, &file); err != nil {
		return nil, eris.Wrap(err, "consolidate: parse unit table")
	}

	t := &UnitTable{byUnit: make(map[string]unitEntry)}
	for _, dim := range file.Dimensions {
		for unit, factor := range dim.Units {
			t.byUnit[foldUnit(unit)] = unitEntry{
				dimension: dim.Name,
				canonical: dim.Canonical,
				factor:    factor,
			}
		}
		for alias, target := range dim.Aliases {
			entry, ok := t.byUnit[foldUnit(target)]
			if !ok {
				return nil, eris.Errorf("consolidate: alias %q points at unknown unit %q", alias, target)
			}
			t.byUnit[foldUnit(alias)] = entry
		}
	}
	return t, nil
}

// Resolve looks up a raw unit string. Returns the dimension name, canonical
// unit, conversion factor and whether the unit is known.
func (t *UnitTable) Resolve(raw string) (dimension, canonical string, factor float64, ok bool) {
	entry, found := t.byUnit[foldUnit(raw)]
	if !found {
		return "", "", 0, false
	}
	return entry.dimension, entry.canonical, entry.factor, true
}

// foldUnit canonicalizes a unit spelling: NFKC (folds superscripts like "²"),
// lowercase, trailing periods dropped, inner punctuation collapsed to single
// spaces with "/" preserved as a real divider.
func foldUnit(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case r == '/':
			b.WriteRune(r)
			lastSpace = false
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '%':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
