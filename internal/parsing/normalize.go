package parsing

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameAliases maps common nickname spellings to the canonical name used in the archive
var nameAliases = map[string]string{
	"jen":    "Jenny",
	"jenn":   "Jenny",
	"jennie": "Jenny",
	"kel":    "Kelvin",
	"arsh":   "Arshiya",
}

// NormalizeName trims, collapses whitespace and title-cases a person name.
// Known nicknames resolve to their canonical spelling.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	joined := strings.Join(fields, " ")

	if canonical, ok := nameAliases[strings.ToLower(joined)]; ok {
		return canonical
	}

	return cases.Title(language.English).String(joined)
}

// Slugify lowercases s, folds diacritics and replaces every run of
// non-alphanumeric characters with a single hyphen.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingDash = false
			sb.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return sb.String()
}

// NormalizeTags slugifies, deduplicates and sorts a tag list.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		slug := Slugify(tag)
		if slug == "" {
			continue
		}
		if _, exists := seen[slug]; exists {
			continue
		}
		seen[slug] = struct{}{}
		normalized = append(normalized, slug)
	}
	slices.Sort(normalized)
	return normalized
}
