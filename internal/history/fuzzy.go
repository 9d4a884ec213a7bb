package history

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// Match is the best candidate found by BestMatch and its similarity score.
type Match struct {
	Candidate string
	Score     float64
}

// tokenKey folds s and sorts its alphanumeric tokens, so word order and
// punctuation do not affect similarity.
func tokenKey(s string) string {
	folded := normalize.Fold(s)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// TokenSortRatio scores the similarity of a and b from 0 to 100 after
// folding and sorting their tokens. Identical keys score 100.
func TokenSortRatio(a, b string) float64 {
	return keyRatio(tokenKey(a), tokenKey(b))
}

func keyRatio(ka, kb string) float64 {
	if ka == "" && kb == "" {
		return 100
	}
	la, lb := len([]rune(ka)), len([]rune(kb))
	longest := max(la, lb)
	dist := levenshtein.ComputeDistance(ka, kb)
	return 100 * (1 - float64(dist)/float64(longest))
}

// BestMatch returns the candidate most similar to query. Ties go to the
// earliest candidate. It reports false for an empty query or candidate list.
func BestMatch(query string, candidates []string) (Match, bool) {
	qk := tokenKey(query)
	if qk == "" || len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Score: -1}
	for _, c := range candidates {
		score := keyRatio(qk, tokenKey(c))
		if score > best.Score {
			best = Match{Candidate: c, Score: score}
		}
	}
	return best, true
}
