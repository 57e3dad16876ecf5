package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold reduces a column name to the form aliases are compared in: trimmed,
// upper case, without diacritics or replacement characters, with underscores
// and whitespace runs collapsed into a single space.
func fold(name string) string {
	stripAccents := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r == unicode.ReplacementChar })),
		norm.NFC,
	)
	stripped, _, err := transform.String(stripAccents, name)
	if err != nil {
		stripped = name
	}
	stripped = strings.ToUpper(stripped)
	stripped = strings.ReplaceAll(stripped, "_", " ")
	return strings.Join(strings.Fields(stripped), " ")
}
