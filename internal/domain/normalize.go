package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for member and director display names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLoginName folds a choir name (or login prefix) to its canonical
// lookup form: lowercase, all whitespace removed, diacritics stripped, so
// "La Peñita" and "lapenita" compare equal.
func NormalizeLoginName(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")
	if out, _, err := transform.String(foldDiacritics, s); err == nil {
		s = out
	}
	return s
}
