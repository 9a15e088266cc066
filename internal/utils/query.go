package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ValidQueryLength reports whether a raw query's byte length falls within
// [min, max]. Bounds are checked on the raw input before normalization:
// normalization only ever shrinks a query, so oversize input is rejected
// without doing any work on it.
func ValidQueryLength(raw string, min, max int) bool {
	return len(raw) >= min && len(raw) <= max
}

// NormalizeQuery canonicalizes a raw search query: Unicode NFC, lowercased,
// with wildcard characters ('*' and '%') and all whitespace removed.
// The result may be empty; an empty query means "browse the top tags"
// rather than an error.
func NormalizeQuery(raw string) string {
	s := strings.ToLower(norm.NFC.String(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '*' || r == '%' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
