package slug

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given name, matching the
// slugs the storefront assigns so merchants can preview URLs before saving.
//
// Examples:
//   - "Summer Sale 2026" → "summer-sale-2026"
//   - "Café & Décor" → "cafe-decor"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Transliterate the accented characters common in store names.
	replacer := strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ä", "a",
		"è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i",
		"ò", "o", "ó", "o", "ô", "o", "ö", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n", "ß", "ss",
	)
	s = replacer.Replace(s)

	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	return s
}
