package history

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// Canonicalizer is the static fallback used when history has no answer:
// aliases first, otherwise a diacritic-free title-cased spelling.
type Canonicalizer struct {
	aliases map[string]string
}

// NewCanonicalizer folds the alias keys so lookups ignore case, accents and
// spacing.
func NewCanonicalizer(aliases map[string]string) *Canonicalizer {
	folded := make(map[string]string, len(aliases))
	for raw, canonical := range aliases {
		k := normalize.Fold(raw)
		if k == "" || canonical == "" {
			continue
		}
		folded[k] = strings.TrimSpace(canonical)
	}
	return &Canonicalizer{aliases: folded}
}

// Canonical returns the static canonical form of raw.
func (c *Canonicalizer) Canonical(raw string) string {
	key := normalize.Fold(raw)
	if key == "" {
		return ""
	}
	if alias, ok := c.aliases[key]; ok {
		return alias
	}

	// Caser is stateful and not safe to share between goroutines.
	title := cases.Title(language.Und)
	tokens := strings.Fields(normalize.StripDiacritics(raw))
	for i, tok := range tokens {
		if isAcronym(tok) {
			continue
		}
		tokens[i] = title.String(strings.ToLower(tok))
	}
	return strings.Join(tokens, " ")
}

// isAcronym keeps short all-caps tokens such as "PSG" or "FC" as written.
func isAcronym(tok string) bool {
	n := 0
	for _, r := range tok {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
		n++
	}
	return n >= 2 && n <= 4
}
