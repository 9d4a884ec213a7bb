package extract

import (
	"regexp"
	"strings"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// MarketOption is one market line found in a block, with the odd printed on
// the same line when there is one.
type MarketOption struct {
	InlineOdd *float64
	Raw       string
	Rule      string
}

// OptionRule decides whether a line is a market option. Match receives the
// trimmed original line and its folded form.
type OptionRule struct {
	Match func(line, folded string) bool
	Name  string
}

var (
	overUnderAfterDash = regexp.MustCompile(`(?i)^.+?[-–—]\s*(?:mais de|menos de|under|over)\s*\d+(?:[.,]\d+)?`)
	overUnderAnywhere  = regexp.MustCompile(`(?i)\b(?:mais de|menos de|under|over)\s*\d+(?:[.,]\d+)?`)
	trailingNumber     = regexp.MustCompile(`(?i)^.+?[-–—]\s*[+-]?\d+(?:[.,]\d+)?(?:\s*(?:pts|pontos|points))?(?:\s+\d+[.,]\d+x)?\s*$`)
	fullStat           = regexp.MustCompile(`(?i)(?:defesas do goleiro|goalkeeper saves|finalizacoes|chutes ao gol|shots on target).*?(?:mais de|over)\s*\d+(?:[.,]\d+)?`)
	disjunctionKeyword = regexp.MustCompile(`\b(?:empate|draw|chance|vencer)\b`)
	bothTeamsScore     = regexp.MustCompile(`\b(?:ambas marcam|ambos marcam|btts|both teams to score)\b`)
)

// DefaultOptionRules is the ordered table ExtractMarkets uses. New
// heuristics are appended here.
func DefaultOptionRules() []OptionRule {
	return []OptionRule{
		{Name: "over_under_after_dash", Match: func(l, _ string) bool { return overUnderAfterDash.MatchString(l) }},
		{Name: "over_under", Match: func(l, _ string) bool { return overUnderAnywhere.MatchString(l) }},
		{Name: "disjunction", Match: func(_, f string) bool {
			return strings.Contains(f, " ou ") && disjunctionKeyword.MatchString(f)
		}},
		{Name: "trailing_number", Match: func(l, _ string) bool { return trailingNumber.MatchString(l) }},
		{Name: "full_stat", Match: func(_, f string) bool { return fullStat.MatchString(f) }},
		{Name: "both_teams_score", Match: func(_, f string) bool { return bothTeamsScore.MatchString(f) }},
	}
}

var optionRules = DefaultOptionRules()

// ClassifyOption returns the name of the first rule that accepts line.
func ClassifyOption(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	folded := normalize.Fold(line)
	for _, r := range optionRules {
		if r.Match(line, folded) {
			return r.Name, true
		}
	}
	return "", false
}

// ExtractMarkets scans lines from start and returns the market options in
// their original order. Lines that are not options are skipped.
func ExtractMarkets(lines []string, start int) []MarketOption {
	if start < 0 {
		start = 0
	}
	var out []MarketOption
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		rule, ok := ClassifyOption(line)
		if !ok {
			continue
		}
		opt := MarketOption{Raw: line, Rule: rule}
		if odd, ok := ExtractInlineOdd(line); ok {
			opt.InlineOdd = &odd
		}
		out = append(out, opt)
	}
	return out
}
