package parsing

import "strings"

// Vocabulary is the closed set of names and codes the parser recognizes.
// It is injected at construction time so tests can substitute their own lists.
type Vocabulary struct {
	Coaches          []string `koanf:"coaches" yaml:"coaches"`
	Students         []string `koanf:"students" yaml:"students"`
	DataSourceCodes  []string `koanf:"data_source_codes" yaml:"data_source_codes"`
	CriticalSynonyms []string `koanf:"critical_synonyms" yaml:"critical_synonyms"`
}

// DefaultVocabulary returns the names and codes seen in the production archive.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Coaches: []string{
			"Jenny", "Kelvin", "Priya", "Marcus", "Sofia", "Daniel", "Noor",
		},
		Students: []string{
			"Arshiya", "Aarnav", "Maya", "Ethan", "Riya", "Lucas", "Zara", "Ishaan",
		},
		// A = archive export, B = backfill, M = manual upload, R = recording import
		DataSourceCodes: []string{"A", "B", "M", "R"},
		CriticalSynonyms: []string{
			"game plan", "gameplan", "game_plan", "game-plan", "strategy plan",
		},
	}
}

// nameIndex resolves case-insensitive name tokens to their canonical spelling.
type nameIndex map[string]string

func newNameIndex(names []string) nameIndex {
	idx := make(nameIndex, len(names))
	for _, name := range names {
		canonical := NormalizeName(name)
		if canonical == "" {
			continue
		}
		idx[strings.ToLower(canonical)] = canonical
	}
	return idx
}

// lookup returns the canonical name for token, trying nickname aliases as well.
func (idx nameIndex) lookup(token string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return "", false
	}
	if canonical, ok := idx[key]; ok {
		return canonical, true
	}
	if alias, ok := nameAliases[key]; ok {
		if canonical, ok := idx[strings.ToLower(alias)]; ok {
			return canonical, true
		}
	}
	return "", false
}
