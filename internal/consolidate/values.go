package consolidate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// parsedQuantity is the numeric reading of one raw occurrence value.
type parsedQuantity struct {
	Value float64 // single value, or range midpoint
	Min   float64
	Max   float64
	Range bool   // true when the raw string was a range
	Unit  string // trailing unit text, empty if none found
}

// qualifiers that precede a number without changing how we read it.
var qualifierRe = regexp.MustCompile(`(?i)^\s*(?:approximately|approx\.?|about|around|circa|c\.|up to|at least|over|under|some|[~≈<>])\s*`)

// numberRe matches a number with optional thousands separators (comma or
// thin space) and an optional decimal part.
const numberPat = `-?\d{1,3}(?:[, ]\d{3})*(?:\.\d+)?|-?\d+(?:\.\d+)?`

var quantityRe = regexp.MustCompile(
	`^(` + numberPat + `)` + // first number
		`(?:\s*(?:-|–|—|to)\s*(` + numberPat + `))?` + // optional range end
		`\s*(.*)$`) // remainder: magnitude word and/or unit

var magnitudes = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

// ParseQuantity reads a raw value string like "1,250", "~ 150 ha",
// "120 – 150", "1.2 million m3" into a numeric value with optional range
// bounds. rawUnit, when non-empty, takes precedence over any unit text
// trailing the number.
func ParseQuantity(rawValue, rawUnit string) (parsedQuantity, error) {
	s := norm.NFKC.String(strings.TrimSpace(rawValue))
	if s == "" {
		return parsedQuantity{}, eris.New("empty value")
	}

	// Strip leading qualifiers, possibly stacked ("approx. ~").
	for {
		stripped := qualifierRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return parsedQuantity{}, eris.Errorf("no number in %q", rawValue)
	}

	first, err := parseNumber(m[1])
	if err != nil {
		return parsedQuantity{}, err
	}

	out := parsedQuantity{Value: first, Min: first, Max: first}

	if m[2] != "" {
		second, err := parseNumber(m[2])
		if err != nil {
			return parsedQuantity{}, err
		}
		lo, hi := first, second
		if lo > hi {
			lo, hi = hi, lo
		}
		out.Min, out.Max = lo, hi
		out.Value = (lo + hi) / 2
		out.Range = true
	}

	remainder := strings.TrimSpace(m[3])

	// A magnitude word scales everything; the rest of the remainder is the
	// unit ("1.2 million m3").
	if fields := strings.Fields(remainder); len(fields) > 0 {
		if scale, ok := magnitudes[strings.ToLower(fields[0])]; ok {
			out.Value *= scale
			out.Min *= scale
			out.Max *= scale
			remainder = strings.TrimSpace(strings.Join(fields[1:], " "))
		}
	}

	out.Unit = strings.TrimSpace(rawUnit)
	if out.Unit == "" {
		out.Unit = remainder
	}

	return out, nil
}

// parseNumber strips thousands separators and parses a float. A comma or
// space only counts as a separator when followed by exactly three digits,
// which the regex already guarantees.
func parseNumber(s string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse number %q", s)
	}
	return v, nil
}
