package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// Pair is a (home, away) pairing and the index of the line it was read
// from. Market options are searched after Line.
type Pair struct {
	Home string
	Away string
	Line int
}

// separatorRules are tried in order on every candidate line. Spaced
// separators come first so hyphenated names survive.
var separatorRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+(?:vs\.?|versus)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+[x×]\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s*@\s*(.+)$`),
	regexp.MustCompile(`^(.+?)\s+[-–—]\s+(.+)$`),
	regexp.MustCompile(`^(.+?)\s*×\s*(.+)$`),
	regexp.MustCompile(`^(.+?)\s*[-–—]\s*(.+)$`),
}

var (
	marketIndicator = regexp.MustCompile(`\b(?:mais de|menos de|under|over|total|empate|draw|ambas|handicap|defesas|pontos|escanteios|cartoes|chance|vencer|ganha|odd|stake|limite)\b`)
	leadingTime     = regexp.MustCompile(`^\d{1,2}[:h]\d{2}\s*`)
	junkPrefix      = regexp.MustCompile(`(?i)^(?:OOS\s+|fe\)\s*)`)
	hasLetter       = regexp.MustCompile(`\p{L}`)
	hasDigit        = regexp.MustCompile(`\d`)
)

// ExtractPair returns the first structurally valid (home, away) pair in
// line order.
func (e *Extractor) ExtractPair(lines []string) (home, away string, ok bool) {
	p, ok := e.FindPair(lines)
	if !ok {
		return "", "", false
	}
	return p.Home, p.Away, true
}

// FindPair is ExtractPair that also reports where the pair was found.
func (e *Extractor) FindPair(lines []string) (Pair, bool) {
	if len(lines) == 0 {
		return Pair{}, false
	}
	if e.DetectSport(strings.Join(lines, "\n")) == SportTennis {
		if p, ok := e.tennisPair(lines); ok {
			return p, true
		}
	}
	return generalPair(lines)
}

func generalPair(lines []string) (Pair, bool) {
	for i, l := range lines {
		if isMarketLine(l) {
			continue
		}
		home, away, ok := splitPair(l)
		if !ok {
			continue
		}
		return Pair{Home: home, Away: away, Line: i}, true
	}
	return Pair{}, false
}

// tennisPair prefers a "Name vs Name" line and otherwise takes two
// consecutive name-like lines that are not tournament headers.
func (e *Extractor) tennisPair(lines []string) (Pair, bool) {
	for i, l := range lines {
		if isMarketLine(l) {
			continue
		}
		home, away, ok := splitPair(l)
		if ok && looksLikeName(home) && looksLikeName(away) {
			return Pair{Home: home, Away: away, Line: i}, true
		}
	}
	candidate := func(l string) bool {
		return !isMarketLine(l) && e.DetectSport(l) == "" && looksLikeName(cleanSide(l))
	}
	for i := 0; i+1 < len(lines); i++ {
		if candidate(lines[i]) && candidate(lines[i+1]) {
			return Pair{Home: cleanSide(lines[i]), Away: cleanSide(lines[i+1]), Line: i + 1}, true
		}
	}
	return Pair{}, false
}

func isMarketLine(line string) bool {
	return marketIndicator.MatchString(normalize.Fold(line))
}

func splitPair(line string) (string, string, bool) {
	for _, re := range separatorRules {
		m := re.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		home, away := cleanSide(m[1]), cleanSide(m[2])
		if hasLetter.MatchString(home) && hasLetter.MatchString(away) {
			return home, away, true
		}
	}
	return "", "", false
}

// cleanSide strips timestamps, OCR junk and decorative symbols around a
// team or player name.
func cleanSide(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, isDecoration)
	s = leadingTime.ReplaceAllString(s, "")
	s = junkPrefix.ReplaceAllString(s, "")
	s = strings.TrimLeftFunc(s, isDecoration)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return isDecoration(r) && r != ')'
	})
	return strings.TrimSpace(s)
}

func isDecoration(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// looksLikeName reports whether s has at least two capitalised tokens and
// no digits, like "Carlos Alcaraz" or "N. Djokovic".
func looksLikeName(s string) bool {
	if s == "" || hasDigit.MatchString(s) {
		return false
	}
	capitalised := 0
	for _, tok := range strings.Fields(s) {
		r := []rune(strings.TrimLeftFunc(tok, isDecoration))
		if len(r) == 0 {
			continue
		}
		if !unicode.IsUpper(r[0]) {
			return false
		}
		capitalised++
	}
	return capitalised >= 2
}
