package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Signature produces the deterministic identity key for a fact name: two
// occurrences with the same signature describe the same logical fact.
// The transform is NFKC normalization, lowercasing, punctuation stripped to
// spaces, and whitespace collapsed. It is idempotent.
func Signature(name string) string {
	s := norm.NFKC.String(name)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		// Everything else (punctuation, separators, symbols) becomes a
		// single space so "PM2.5" and "pm 2 5" collapse together.
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
