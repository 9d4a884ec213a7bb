// Package model defines the domain types that flow through the bet recording pipeline.
package model

import "time"

// RawInput is one inbound chat event. It is never mutated after creation.
type RawInput struct {
	Timestamp time.Time
	Text      string
	OCRText   string
	ChatID    int64
	MessageID int
}

// HasOCR reports whether the event carried an image that produced text.
func (r RawInput) HasOCR() bool {
	return r.OCRText != ""
}

// Block is one segmented candidate-bet unit of a message. Index preserves
// the order in which blocks appeared.
type Block struct {
	Text  string
	Index int
}

// CandidateBet is what the extractor found for a single market inside a block.
type CandidateBet struct {
	InlineOdd *float64
	HomeRaw   string
	AwayRaw   string
	MarketRaw string
}

// HasPair reports whether both sides of the pairing were found.
func (c CandidateBet) HasPair() bool {
	return c.HomeRaw != "" && c.AwayRaw != ""
}

// ExtractedFields holds the numeric and tag fields pulled out of a block.
type ExtractedFields struct {
	Limit       *float64
	Bookmaker   string
	Sport       string
	Competition string
	Stakes      []float64
	Odds        []float64
}

// ResolvedBet is a CandidateBet after canonicalisation, reconciliation,
// sizing and deduplication.
type ResolvedBet struct {
	CandidateBet

	OddValue      *float64
	CanonicalHome string
	CanonicalAway string
	BetType       string
	Selection     string
	MarketSummary string
	Fingerprint   string
	Fields        ExtractedFields
	StakePct      float64
	ActualUnits   float64
	UnitValue     float64
	Amount        float64
	Scale         int
	IsDuplicate   bool
}
