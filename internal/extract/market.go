package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// Bet type tags returned by ParseMarket.
const (
	BetOver         = "over"
	BetUnder        = "under"
	BetHandicap     = "handicap"
	BetDoubleChance = "double_chance"
	BetBothScore    = "btts"
	BetWin          = "win"
	BetDraw         = "draw"
	BetTotal        = "total"
)

// MarketRule classifies market text. Pattern is matched against the folded
// text; Selection extracts the selection from the folded and the original
// text and may veto the match by returning false.
type MarketRule struct {
	Pattern   *regexp.Regexp
	Selection func(folded, raw string) (string, bool)
	Name      string
	Tag       string
	Priority  int
}

var (
	firstNumber  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	signedNumber = regexp.MustCompile(`[+-]?\s?\d+(?:[.,]\d+)?`)
	negation     = regexp.MustCompile(`\b(?:nao|no|not)\b`)
)

func numberSelection(folded, _ string) (string, bool) {
	n := firstNumber.FindString(folded)
	if n == "" {
		return "", false
	}
	return strings.ReplaceAll(n, ",", "."), true
}

func signedSelection(folded, _ string) (string, bool) {
	n := signedNumber.FindString(folded)
	if n == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.ReplaceAll(n, " ", ""), ",", "."), true
}

// prefixSelection returns the original text in front of the keyword that
// pattern matched, e.g. the team in "Flamengo ou Empate".
func prefixSelection(pattern *regexp.Regexp) func(folded, raw string) (string, bool) {
	return func(folded, raw string) (string, bool) {
		loc := pattern.FindStringIndex(folded)
		if loc == nil {
			return "", false
		}
		prefix := strings.Fields(folded[:loc[0]])
		rawFields := strings.Fields(raw)
		if len(prefix) == 0 || len(prefix) > len(rawFields) {
			return "", true
		}
		return cleanSide(strings.Join(rawFields[:len(prefix)], " ")), true
	}
}

func fixedSelection(value string) func(folded, raw string) (string, bool) {
	return func(_, _ string) (string, bool) { return value, true }
}

var (
	doubleChanceKeyword = regexp.MustCompile(`\bou empate\b|\bdupla chance\b|\bdouble chance\b`)
	winKeyword          = regexp.MustCompile(`\b(?:vence|vencer|vitoria|ganha|win|ml|moneyline)\b`)
)

// DefaultMarketRules returns the ordered market classification table.
func DefaultMarketRules() []MarketRule {
	return []MarketRule{
		{Name: "Over", Tag: BetOver, Priority: 100,
			Pattern: regexp.MustCompile(`\b(?:over|mais de|acima de)\b`), Selection: numberSelection},
		{Name: "Under", Tag: BetUnder, Priority: 95,
			Pattern: regexp.MustCompile(`\b(?:under|menos de|abaixo de)\b`), Selection: numberSelection},
		{Name: "Handicap", Tag: BetHandicap, Priority: 90,
			Pattern: regexp.MustCompile(`\b(?:handicap|hcap|ah)\b`), Selection: signedSelection},
		{Name: "Double Chance", Tag: BetDoubleChance, Priority: 85,
			Pattern: doubleChanceKeyword, Selection: prefixSelection(doubleChanceKeyword)},
		{Name: "Both Teams To Score", Tag: BetBothScore, Priority: 80,
			Pattern: bothTeamsScore, Selection: func(folded, _ string) (string, bool) {
				if negation.MatchString(folded) {
					return "no", true
				}
				return "yes", true
			}},
		{Name: "Win", Tag: BetWin, Priority: 75,
			Pattern: winKeyword, Selection: prefixSelection(winKeyword)},
		{Name: "Draw", Tag: BetDraw, Priority: 70,
			Pattern: regexp.MustCompile(`\b(?:empate|draw)\b`), Selection: fixedSelection("draw")},
		{Name: "Total", Tag: BetTotal, Priority: 65,
			Pattern: regexp.MustCompile(`\btotal\b`), Selection: numberSelection},
	}
}

// MarketParser evaluates market rules by descending priority; the first
// rule that matches and yields a selection wins.
type MarketParser struct {
	rules []MarketRule
}

// NewMarketParser sorts rules by priority, keeping table order for ties.
func NewMarketParser(rules []MarketRule) *MarketParser {
	sorted := append([]MarketRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &MarketParser{rules: sorted}
}

// Parse returns the bet type tag and selection for raw, or two empty
// strings when no rule applies.
func (p *MarketParser) Parse(raw string) (betType, selection string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	folded := normalize.Fold(raw)
	for _, r := range p.rules {
		if !r.Pattern.MatchString(folded) {
			continue
		}
		sel, ok := r.Selection(folded, normalize.StripDiacritics(raw))
		if !ok {
			continue
		}
		return r.Tag, sel
	}
	return "", ""
}

var defaultParser = NewMarketParser(DefaultMarketRules())

// ParseMarket classifies raw market text with the default rules.
func ParseMarket(raw string) (betType, selection string) {
	return defaultParser.Parse(raw)
}

var statWords = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`\bgols?\b|\bgoals?\b`), "Gols"},
	{regexp.MustCompile(`\bescanteios?\b|\bcantos?\b|\bcorners?\b`), "Escanteios"},
	{regexp.MustCompile(`\bcartoes\b|\bcards?\b`), "Cartões"},
	{regexp.MustCompile(`\bdefesas\b|\bsaves\b`), "Defesas"},
	{regexp.MustCompile(`\bpontos\b|\bpts\b|\bpoints\b`), "Pontos"},
	{regexp.MustCompile(`\bgames\b`), "Games"},
	{regexp.MustCompile(`\baces\b`), "Aces"},
}

// SummarizeMarket builds a short label such as "Over 2.5 Gols" from raw
// market text. Unrecognised text is returned trimmed.
func SummarizeMarket(raw string) string {
	raw = strings.TrimSpace(raw)
	betType, sel := ParseMarket(raw)
	if betType == "" {
		return raw
	}

	var label string
	switch betType {
	case BetOver:
		label = "Over " + sel
	case BetUnder:
		label = "Under " + sel
	case BetHandicap:
		label = "Handicap " + sel
	case BetDoubleChance:
		label = strings.TrimSpace(sel + " ou Empate")
	case BetBothScore:
		if sel == "no" {
			label = "Ambas Marcam Não"
		} else {
			label = "Ambas Marcam Sim"
		}
	case BetWin:
		label = strings.TrimSpace("Vitória " + sel)
	case BetDraw:
		label = "Empate"
	case BetTotal:
		label = "Total " + sel
	}

	switch betType {
	case BetOver, BetUnder, BetTotal, BetHandicap:
		folded := normalize.Fold(raw)
		for _, w := range statWords {
			if w.re.MatchString(folded) {
				return label + " " + w.label
			}
		}
	}
	return label
}
