package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

var urlPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?((?:[a-z0-9-]+\.)+(?:com|bet|net|io|br|org|app)(?:\.br)?)\b`)

type compiledSport struct {
	re  *regexp.Regexp
	tag string
}

type compiledBookmaker struct {
	re *regexp.Regexp
	Bookmaker
}

// Extractor bundles the keyword tables needed by the detection functions.
// It is immutable after New and safe for concurrent use.
type Extractor struct {
	sports       []compiledSport
	competitions []string
	bookmakers   []compiledBookmaker
}

// New builds an Extractor. Empty tables fall back to the defaults.
func New(cfg Config) *Extractor {
	if len(cfg.Sports) == 0 {
		cfg.Sports = DefaultSports()
	}
	if len(cfg.Competitions) == 0 {
		cfg.Competitions = DefaultCompetitions()
	}
	if len(cfg.Bookmakers) == 0 {
		cfg.Bookmakers = DefaultBookmakers()
	}

	e := &Extractor{competitions: cfg.Competitions}
	for _, s := range cfg.Sports {
		if re := wordsPattern(s.Keywords); re != nil {
			e.sports = append(e.sports, compiledSport{tag: s.Tag, re: re})
		}
	}

	books := append([]Bookmaker(nil), cfg.Bookmakers...)
	// Longer keywords first so "betpix365" wins over "bet365".
	sort.SliceStable(books, func(i, j int) bool {
		if len(books[i].Keyword) != len(books[j].Keyword) {
			return len(books[i].Keyword) > len(books[j].Keyword)
		}
		return books[i].Keyword < books[j].Keyword
	})
	for _, b := range books {
		if re := wordsPattern([]string{b.Keyword}); re != nil {
			e.bookmakers = append(e.bookmakers, compiledBookmaker{Bookmaker: b, re: re})
		}
	}
	return e
}

func wordsPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = normalize.Fold(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// DetectSport returns the tag of the first sport rule whose keywords appear
// in text, or "".
func (e *Extractor) DetectSport(text string) string {
	if text == "" {
		return ""
	}
	folded := normalize.Fold(text)
	for _, s := range e.sports {
		if s.re.MatchString(folded) {
			return s.tag
		}
	}
	return ""
}

// DetectCompetition returns the first configured competition mentioned in
// text, or "".
func (e *Extractor) DetectCompetition(text string) string {
	if text == "" {
		return ""
	}
	folded := normalize.Fold(text)
	for _, c := range e.competitions {
		if strings.Contains(folded, normalize.Fold(c)) {
			return c
		}
	}
	return ""
}

// DetectBookmaker looks for a bookmaker first in links and then as a plain
// word in the text.
func (e *Extractor) DetectBookmaker(text string) string {
	if text == "" {
		return ""
	}
	for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
		host := strings.ToLower(m[1])
		compact := strings.NewReplacer(".", "", "-", "").Replace(host)
		for _, b := range e.bookmakers {
			if strings.Contains(compact, b.Keyword) {
				return b.Name
			}
		}
	}

	folded := normalize.Fold(text)
	for _, b := range e.bookmakers {
		if b.URLOnly {
			continue
		}
		if b.re.MatchString(folded) {
			return b.Name
		}
	}
	return ""
}
