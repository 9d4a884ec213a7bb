package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	stakePattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:%|u(?:nidades?|nits?|nid)?\b)`)
	oddPattern    = regexp.MustCompile(`(?i)(?:odd\s+justa|odds?|🏷\x{FE0F}?)\s*[:=]?\s*@?\s*(\d+(?:[.,]\d+)?)`)
	limitPattern  = regexp.MustCompile(`(?i)limite.*?R\$\s*(\d[\d.,]*)`)
	amountPattern = regexp.MustCompile(`(?i)R\$\s*(\d[\d.,]*)`)
	inlineOdd     = regexp.MustCompile(`(?i)(\d+[.,]\d+)x\b`)
	thousandsOnly = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
)

// ParseDecimal parses a number written with either comma or period as the
// decimal separator.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseMoney parses a Brazilian-formatted monetary value such as
// "1.250,50", "50,00", "1.000" or "49.90".
func ParseMoney(s string) (float64, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), ".,")
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	return ParseDecimal(s)
}

func allDecimals(re *regexp.Regexp, text string) []float64 {
	if text == "" {
		return nil
	}
	var out []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, ok := ParseDecimal(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}

// ExtractStakes returns every stake value ("1,5%", "2u") in order of appearance.
func ExtractStakes(text string) []float64 {
	return allDecimals(stakePattern, text)
}

// ExtractOdds returns every labelled odd ("Odd 1.85", "🏷 2,10") in order.
func ExtractOdds(text string) []float64 {
	return allDecimals(oddPattern, text)
}

// ExtractLimit returns the betting limit stated as "Limite ... R$ N".
// A zero limit is not a limit.
func ExtractLimit(text string) (float64, bool) {
	m := limitPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, ok := ParseMoney(m[1])
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// ExtractAmount returns the first monetary amount that is not a limit.
func ExtractAmount(text string) (float64, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), "limite") {
			continue
		}
		if m := amountPattern.FindStringSubmatch(line); m != nil {
			if v, ok := ParseMoney(m[1]); ok && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// ExtractInlineOdd returns an odd written directly on a line as "1.85x".
func ExtractInlineOdd(line string) (float64, bool) {
	m := inlineOdd.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return ParseDecimal(m[1])
}
