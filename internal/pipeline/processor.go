// Package pipeline turns inbound chat messages into recorded bets: it
// segments and extracts, resolves names against the history, reconciles
// stakes and odds, deduplicates and appends one row per bet to the sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/paterrx/planilhador-telegram/internal/dedup"
	"github.com/paterrx/planilhador-telegram/internal/extract"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/normalize"
	"github.com/paterrx/planilhador-telegram/internal/reconcile"
)

// maxLoneTeamRunes bounds the lines considered as a single team name when
// no pair was found.
const maxLoneTeamRunes = 40

// Resolver maps raw names and markets to their canonical forms.
// *history.State implements it.
type Resolver interface {
	SuggestCanonical(raw string) (string, bool)
	Canonicalize(raw string) string
	SuggestSummary(rawMarket string) (string, bool)
	SuggestOpponent(rawTeam string) (string, bool)
	Update(homeRaw, awayRaw, marketRaw, summary string)
}

// Deduper decides whether a fingerprint was already recorded.
// *dedup.Tracker implements it.
type Deduper interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
}

// Sink receives one record per resolved bet.
type Sink interface {
	Append(ctx context.Context, rec model.Record) error
}

// ChatNamer resolves a chat id to a display name.
type ChatNamer interface {
	ChatName(ctx context.Context, chatID int64) string
}

// Deps are the collaborators of a Processor. Namer and Metrics are
// optional.
type Deps struct {
	Normalizer *normalize.Normalizer
	Extractor  *extract.Extractor
	Resolver   Resolver
	Dedup      Deduper
	Sink       Sink
	Namer      ChatNamer
	Metrics    *Metrics
	Logger     *slog.Logger
	Policy     reconcile.Policy
}

// Processor runs the extraction pipeline for one message at a time. It is
// safe for concurrent use; shared state lives in the Resolver and Deduper.
type Processor struct {
	norm     *normalize.Normalizer
	ext      *extract.Extractor
	resolver Resolver
	dedup    Deduper
	sink     Sink
	namer    ChatNamer
	metrics  *Metrics
	logger   *slog.Logger
	policy   reconcile.Policy
}

// NewProcessor checks deps and builds a Processor.
func NewProcessor(deps Deps) (*Processor, error) {
	switch {
	case deps.Normalizer == nil:
		return nil, fmt.Errorf("normalizer is required")
	case deps.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case deps.Dedup == nil:
		return nil, fmt.Errorf("deduplicator is required")
	case deps.Sink == nil:
		return nil, fmt.Errorf("sink is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Processor{
		norm:     deps.Normalizer,
		ext:      deps.Extractor,
		resolver: deps.Resolver,
		dedup:    deps.Dedup,
		sink:     deps.Sink,
		namer:    deps.Namer,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		policy:   deps.Policy,
	}, nil
}

// pending is a resolved bet waiting to be written, with the block text it
// was identified in.
type pending struct {
	raw string
	bet model.ResolvedBet
}

// Process extracts, resolves and records every bet in one message and
// returns them in block order. Extraction misses are not errors: a message
// without bets returns nil. The only error is ctx being cancelled, in
// which case the bets resolved so far are returned with it.
func (p *Processor) Process(ctx context.Context, in model.RawInput) ([]model.ResolvedBet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := p.logger.With(
		"correlation_id", uuid.NewString(),
		"chat_id", in.ChatID,
		"message_id", in.MessageID,
	)

	caption := p.norm.CleanCaption(in.Text)
	var ocrLines []string
	if in.HasOCR() {
		ocrLines = p.norm.SplitLines(in.OCRText)
	}

	blocks := p.norm.Segment(caption)
	if len(blocks) == 0 {
		if len(ocrLines) == 0 {
			logger.Debug("Message has no text after cleanup")
			p.metrics.message(outcomeEmpty)
			return nil, nil
		}
		blocks = []model.Block{{Index: 0}}
	}

	// An image belongs to the whole message, so its lines are only paired
	// with the caption when the caption holds a single bet.
	if len(blocks) > 1 {
		ocrLines = nil
	}

	var queue []pending
	for _, block := range blocks {
		queue = append(queue, p.resolveBlock(logger, in, block, ocrLines)...)
	}
	if len(queue) == 0 {
		logger.Debug("No bets found in message", "blocks", len(blocks))
		p.metrics.message(outcomeNoBets)
		return nil, nil
	}

	chatName := p.chatName(ctx, in.ChatID)
	bets := make([]model.ResolvedBet, 0, len(queue))
	for _, item := range queue {
		if err := ctx.Err(); err != nil {
			return bets, err
		}
		bets = append(bets, p.record(ctx, logger, in, chatName, item))
	}
	p.metrics.message(outcomeRecorded)
	return bets, nil
}

func (p *Processor) chatName(ctx context.Context, chatID int64) string {
	if p.namer == nil {
		return fmt.Sprintf("%d", chatID)
	}
	return p.namer.ChatName(ctx, chatID)
}

// resolveBlock extracts and resolves the bets of one block. OCR lines are
// searched for the pair first, with the block's own lines as fallback.
func (p *Processor) resolveBlock(logger *slog.Logger, in model.RawInput, block model.Block, ocrLines []string) []pending {
	logger = logger.With("block", block.Index)

	captionLines := p.norm.SplitLines(block.Text)
	ocrText := strings.Join(ocrLines, "\n")
	all := strings.TrimSpace(block.Text + "\n" + ocrText)

	fields := model.ExtractedFields{
		Stakes:      extract.ExtractStakes(block.Text),
		Odds:        extract.ExtractOdds(block.Text),
		Sport:       p.ext.DetectSport(all),
		Competition: p.ext.DetectCompetition(all),
		Bookmaker:   p.ext.DetectBookmaker(all),
	}
	if len(fields.Stakes) == 0 {
		fields.Stakes = extract.ExtractStakes(ocrText)
	}
	if len(fields.Odds) == 0 {
		fields.Odds = extract.ExtractOdds(ocrText)
	}
	if limit, ok := extract.ExtractLimit(all); ok {
		fields.Limit = &limit
	}

	candidates, source := p.candidates(logger, ocrLines, captionLines)
	if len(candidates) == 0 {
		logger.Debug("No team pair in block")
		return nil
	}
	logger.Debug("Candidates extracted",
		"source", source,
		"markets", len(candidates),
		"stakes", fields.Stakes,
		"odds", fields.Odds,
	)

	var inferred *float64
	if len(fields.Stakes) == 0 {
		if amount, ok := extract.ExtractAmount(all); ok {
			if stake, ok := reconcile.InferStake(amount, p.policy.UnitValue(in.ChatID)); ok {
				inferred = &stake
				logger.Debug("Stake inferred from amount", "amount", amount, "stake", stake)
			}
		}
	}

	inline := make([]*float64, len(candidates))
	for i, c := range candidates {
		inline[i] = c.InlineOdd
	}
	assignments := reconcile.Reconcile(reconcile.Input{
		Markets:       len(candidates),
		Stakes:        fields.Stakes,
		Odds:          fields.Odds,
		InlineOdds:    inline,
		InferredStake: inferred,
	})

	raw := block.Text
	if raw == "" {
		raw = ocrText
	}

	out := make([]pending, 0, len(assignments))
	for _, a := range assignments {
		c := candidates[a.Index]
		if a.Skipped {
			logger.Info("Skipping market", "market", c.MarketRaw, "reason", a.Reason)
			p.metrics.skippedMarket(a.Reason)
			continue
		}
		out = append(out, pending{raw: raw, bet: p.resolve(in, c, fields, a)})
	}
	return out
}

// candidates finds the pair and its markets, OCR first. A pair with no
// market yields a single candidate with an empty market.
func (p *Processor) candidates(logger *slog.Logger, ocrLines, captionLines []string) ([]model.CandidateBet, string) {
	sources := []struct {
		name  string
		lines []string
	}{
		{"ocr", ocrLines},
		{"caption", captionLines},
	}

	for _, src := range sources {
		if len(src.lines) == 0 {
			continue
		}
		pair, ok := p.ext.FindPair(src.lines)
		if !ok {
			pair, ok = p.loneTeam(src.lines)
			if ok {
				logger.Debug("Opponent inferred from history", "team", pair.Home, "opponent", pair.Away)
			}
		}
		if !ok {
			continue
		}
		return candidatesFor(pair, extract.ExtractMarkets(src.lines, pair.Line+1)), src.name
	}
	return nil, ""
}

// loneTeam looks for a line that is a known team on its own and completes
// the pair with that team's most frequent opponent.
func (p *Processor) loneTeam(lines []string) (extract.Pair, bool) {
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) > maxLoneTeamRunes {
			continue
		}
		if strings.ContainsAny(line, "0123456789") {
			continue
		}
		if _, isMarket := extract.ClassifyOption(line); isMarket {
			continue
		}
		if _, known := p.resolver.SuggestCanonical(line); !known {
			continue
		}
		if opponent, ok := p.resolver.SuggestOpponent(line); ok {
			return extract.Pair{Home: line, Away: opponent, Line: i}, true
		}
	}
	return extract.Pair{}, false
}

func candidatesFor(pair extract.Pair, markets []extract.MarketOption) []model.CandidateBet {
	if len(markets) == 0 {
		return []model.CandidateBet{{HomeRaw: pair.Home, AwayRaw: pair.Away}}
	}
	out := make([]model.CandidateBet, len(markets))
	for i, m := range markets {
		out[i] = model.CandidateBet{
			HomeRaw:   pair.Home,
			AwayRaw:   pair.Away,
			MarketRaw: m.Raw,
			InlineOdd: m.InlineOdd,
		}
	}
	return out
}

// resolve canonicalises, classifies and sizes one candidate.
func (p *Processor) resolve(in model.RawInput, c model.CandidateBet, fields model.ExtractedFields, a reconcile.Assignment) model.ResolvedBet {
	bet := model.ResolvedBet{
		CandidateBet:  c,
		Fields:        fields,
		OddValue:      a.Odd,
		StakePct:      a.StakePct,
		CanonicalHome: p.resolver.Canonicalize(c.HomeRaw),
		CanonicalAway: p.resolver.Canonicalize(c.AwayRaw),
	}

	if c.MarketRaw != "" {
		bet.BetType, bet.Selection = extract.ParseMarket(c.MarketRaw)
		if summary, ok := p.resolver.SuggestSummary(c.MarketRaw); ok {
			bet.MarketSummary = summary
		} else {
			bet.MarketSummary = extract.SummarizeMarket(c.MarketRaw)
		}
	}

	size := p.policy.Size(in.ChatID, a.StakePct, fields.Limit)
	bet.UnitValue = size.UnitValue
	bet.Amount = size.Amount
	bet.ActualUnits = size.ActualUnits
	bet.Scale = size.Scale

	bet.Fingerprint = dedup.Fingerprint(c.HomeRaw, c.AwayRaw, c.MarketRaw, a.Odd)
	return bet
}

// record marks the bet seen, appends it to the sink and teaches the
// history its market summary. Failures are logged and the bet is returned
// either way.
func (p *Processor) record(ctx context.Context, logger *slog.Logger, in model.RawInput, chatName string, item pending) model.ResolvedBet {
	bet := item.bet
	logger = logger.With("bet_key", bet.Fingerprint)

	dup, err := p.dedup.CheckAndMark(ctx, bet.Fingerprint)
	if err != nil {
		logger.Warn("Seen state not persisted", "error", err)
	}
	bet.IsDuplicate = dup
	if dup {
		p.metrics.duplicate()
	}

	rec := model.NewRecord(in, chatName, item.raw, bet)
	if err := p.sink.Append(ctx, rec); err != nil {
		logger.Error("Failed to record bet", "error", err)
		p.metrics.sinkError()
		return bet
	}
	p.metrics.recordedBet()

	if bet.MarketRaw != "" && bet.MarketSummary != "" {
		p.resolver.Update(bet.HomeRaw, bet.AwayRaw, bet.MarketRaw, bet.MarketSummary)
	}

	logger.Info("Bet recorded",
		"home", bet.CanonicalHome,
		"away", bet.CanonicalAway,
		"market", bet.MarketSummary,
		"stake", bet.StakePct,
		"amount", bet.Amount,
		"duplicate", dup,
	)
	return bet
}
