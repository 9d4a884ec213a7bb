// Package normalize cleans raw captions and OCR output and splits messages
// into independent bet blocks.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/model"
)

// DefaultMarker is the glyph tipsters put in front of every bet in a
// multi-bet message.
const DefaultMarker = "📅"

// DefaultNoisePatterns are line prefixes that betting-slip screenshots and
// tipster captions carry but that never hold bet data.
func DefaultNoisePatterns() []string {
	return []string{
		`^Aposta simples`,
		`^Imperdíveis`,
		`^Valor da aposta`,
		`^OOS\b`,
		`^fe\)`,
		`^Q \d+:\d+`,
		`^Hora de decidir`,
		`^📌`,
		`^🏠`,
		`^🆚`,
	}
}

// Config holds the normalizer settings.
type Config struct {
	Marker        string
	NoisePatterns []string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Marker:        DefaultMarker,
		NoisePatterns: DefaultNoisePatterns(),
	}
}

// Normalizer applies noise filtering, caption cleanup and segmentation.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	marker string
	noise  []*regexp.Regexp
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// New compiles the configured noise patterns. Patterns are matched
// case-insensitively against the start of a line.
func New(cfg Config) (*Normalizer, error) {
	compiled := make([]*regexp.Regexp, 0, len(cfg.NoisePatterns))
	for _, p := range cfg.NoisePatterns {
		if p == "" {
			continue
		}
		re, err := common.CompilePrefixPattern(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile noise pattern: %w", err)
		}
		compiled = append(compiled, re)
	}

	return &Normalizer{
		marker: cfg.Marker,
		noise:  compiled,
	}, nil
}

// Marker returns the segmentation glyph.
func (n *Normalizer) Marker() string {
	return n.marker
}

// Normalize puts raw text into NFC form with LF line endings and no
// surrounding whitespace.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// IsNoise reports whether a trimmed line matches one of the noise prefixes.
func (n *Normalizer) IsNoise(line string) bool {
	for _, re := range n.noise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// FilterNoise trims every line and drops blanks and noise lines.
// Applying it twice yields the same result as applying it once.
func (n *Normalizer) FilterNoise(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || n.IsNoise(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// SplitLines normalizes text and returns its noise-free lines. This is the
// entry point for OCR output.
func (n *Normalizer) SplitLines(text string) []string {
	return n.FilterNoise(strings.Split(n.Normalize(text), "\n"))
}

// CleanCaption removes noise lines, strips leading punctuation from each
// line, collapses whitespace runs and joins the surviving lines with "\n".
func (n *Normalizer) CleanCaption(raw string) string {
	lines := n.SplitLines(raw)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimLeftFunc(l, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		})
		l = whitespaceRun.ReplaceAllString(l, " ")
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// Segment splits cleaned text so that every block starts with the marker.
// Text with no marker is returned as a single block, and empty text yields
// no blocks. Segmenting the text of a returned block gives that block back.
func (n *Normalizer) Segment(cleaned string) []model.Block {
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}
	if n.marker == "" || !strings.Contains(cleaned, n.marker) {
		return []model.Block{{Index: 0, Text: cleaned}}
	}

	var (
		blocks []model.Block
		start  int
	)
	appendBlock := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || s == n.marker {
			return
		}
		blocks = append(blocks, model.Block{Index: len(blocks), Text: s})
	}

	start = strings.Index(cleaned, n.marker)
	appendBlock(cleaned[:start])
	for {
		next := strings.Index(cleaned[start+len(n.marker):], n.marker)
		if next < 0 {
			appendBlock(cleaned[start:])
			break
		}
		end := start + len(n.marker) + next
		appendBlock(cleaned[start:end])
		start = end
	}

	if len(blocks) == 0 {
		return []model.Block{{Index: 0, Text: cleaned}}
	}
	return blocks
}
