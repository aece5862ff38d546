package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL-safe slug from a title: diacritics stripped,
// lower-cased, runs of non-alphanumerics collapsed to single hyphens,
// leading and trailing hyphens trimmed. Non-latin letters (Hangul included)
// survive as-is. Returns "" when nothing usable remains.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}
