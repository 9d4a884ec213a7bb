// Package history learns canonical team names, market summaries and usual
// opponents from the rows already recorded in the ground truth sheet.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/normalize"
)

// DefaultFuzzyThreshold is the minimum token-sort similarity, inclusive,
// for a fuzzy match to be accepted.
const DefaultFuzzyThreshold = 85.0

// GroundTruth is the table history is learned from. The first row is the
// header.
type GroundTruth interface {
	ReadAll(ctx context.Context) ([][]string, error)
}

// Options configures a State.
type Options struct {
	Logger         *slog.Logger
	Aliases        map[string]string
	FuzzyThreshold float64
}

// Stats describes the loaded history.
type Stats struct {
	LoadedAt  time.Time
	Rows      int
	Teams     int
	Markets   int
	Opponents int
}

// State is the process-wide history cache. Lookups take a read lock;
// Update and Reload take the write lock. Reloads run one at a time, and
// summaries learned while a reload is reading are carried into the new
// snapshot.
type State struct {
	src       GroundTruth
	snap      *snapshot
	static    *Canonicalizer
	logger    *slog.Logger
	pending   []learnedSummary
	threshold float64
	mu        sync.RWMutex
	reloadMu  sync.Mutex
	reloading bool
}

type learnedSummary struct {
	market  string
	summary string
}

// New loads history from src. An unreadable source is an error; a header
// without the expected columns only yields an empty history.
func New(ctx context.Context, src GroundTruth, opts Options) (*State, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}

	s := &State{
		src:       src,
		static:    NewCanonicalizer(opts.Aliases),
		logger:    opts.Logger,
		threshold: opts.FuzzyThreshold,
	}

	snap, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.snap = snap

	st := s.Stats()
	s.logger.Info("History loaded",
		"rows", st.Rows,
		"teams", st.Teams,
		"markets", st.Markets)
	return s, nil
}

func (s *State) read(ctx context.Context) (*snapshot, error) {
	if s.src == nil {
		return newSnapshot(), nil
	}
	rows, err := s.src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrHistoryUnavailable, err)
	}
	snap, err := buildSnapshot(rows)
	if err != nil {
		s.logger.Warn("Ground truth header is incomplete, starting with empty history", "error", err)
		return newSnapshot(), nil
	}
	return snap, nil
}

// Reload rebuilds the whole history from the ground truth. The source is
// read without holding the lookup lock; on failure the current state is
// kept.
func (s *State) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.mu.Lock()
	s.reloading = true
	s.pending = nil
	s.mu.Unlock()

	snap, err := s.read(ctx)

	s.mu.Lock()
	pending := s.pending
	s.reloading = false
	s.pending = nil
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for _, l := range pending {
		snap.addSummary(l.market, l.summary)
	}
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("History reloaded",
		"rows", snap.rows,
		"teams", len(snap.teamKeys),
		"markets", len(snap.marketKeys))
	return nil
}

// SuggestCanonical maps a raw team name to its learned canonical form,
// first exactly and then by fuzzy similarity.
func (s *State) SuggestCanonical(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(raw, s.snap.canonical, s.snap.teamKeys)
}

// SuggestSummary maps a raw market text to its learned summary.
func (s *State) SuggestSummary(rawMarket string) (string, bool) {
	rawMarket = strings.TrimSpace(rawMarket)
	if rawMarket == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lookup(rawMarket, s.snap.summary, s.snap.marketKeys)
}

func (s *State) lookup(raw string, m map[string]string, keys []string) (string, bool) {
	if v, ok := m[raw]; ok {
		return v, true
	}
	best, ok := BestMatch(raw, keys)
	if !ok || best.Score < s.threshold {
		return "", false
	}
	s.logger.Debug("Fuzzy history match",
		"raw", raw,
		"match", best.Candidate,
		"score", best.Score)
	return m[best.Candidate], true
}

// Canonicalize returns the learned canonical name for raw, or the static
// canonical form when history does not know it.
func (s *State) Canonicalize(raw string) string {
	if c, ok := s.SuggestCanonical(raw); ok {
		return c
	}
	return s.static.Canonical(raw)
}

// SuggestOpponent returns the opponent seen most often with rawTeam.
// Ties go to the opponent seen first while loading.
func (s *State) SuggestOpponent(rawTeam string) (string, bool) {
	team := s.Canonicalize(rawTeam)
	if team == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.snap.opponents[normalize.Fold(team)]
	if !ok {
		return "", false
	}
	return c.top()
}

// Update records a market summary produced at runtime. Existing mappings
// are never overwritten, and team names only change through Reload.
func (s *State) Update(homeRaw, awayRaw, marketRaw, summary string) {
	marketRaw = strings.TrimSpace(marketRaw)
	summary = strings.TrimSpace(summary)
	if marketRaw == "" || summary == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reloading {
		s.pending = append(s.pending, learnedSummary{market: marketRaw, summary: summary})
	}
	if s.snap.addSummary(marketRaw, summary) {
		s.logger.Debug("History learned market summary",
			"home", homeRaw,
			"away", awayRaw,
			"market", marketRaw,
			"summary", summary)
	}
}

// Stats returns counts for the current snapshot.
func (s *State) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		LoadedAt:  s.snap.loadedAt,
		Rows:      s.snap.rows,
		Teams:     len(s.snap.teamKeys),
		Markets:   len(s.snap.marketKeys),
		Opponents: len(s.snap.opponents),
	}
}

var errMissingColumns = errors.New("missing columns")

// snapshot is an immutable-after-build view of the history, except for
// summary additions made by Update under the write lock.
type snapshot struct {
	loadedAt   time.Time
	canonical  map[string]string
	summary    map[string]string
	opponents  map[string]*counter
	teamKeys   []string
	marketKeys []string
	rows       int
}

func newSnapshot() *snapshot {
	return &snapshot{
		loadedAt:  time.Now(),
		canonical: make(map[string]string),
		summary:   make(map[string]string),
		opponents: make(map[string]*counter),
	}
}

func buildSnapshot(rows [][]string) (*snapshot, error) {
	snap := newSnapshot()
	if len(rows) == 0 {
		return snap, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	required := []string{
		model.ColRawHome, model.ColRawAway, model.ColHome, model.ColAway,
		model.ColRawMarket, model.ColMarketSummary,
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingColumns, strings.Join(missing, ", "))
	}

	for _, row := range rows[1:] {
		get := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		home, away := get(model.ColHome), get(model.ColAway)
		snap.addTeam(get(model.ColRawHome), home)
		snap.addTeam(get(model.ColRawAway), away)
		snap.addSummary(get(model.ColRawMarket), get(model.ColMarketSummary))
		if home != "" && away != "" {
			snap.addOpponent(home, away)
			snap.addOpponent(away, home)
		}
		snap.rows++
	}
	return snap, nil
}

func (s *snapshot) addTeam(raw, canonical string) {
	if raw == "" || canonical == "" {
		return
	}
	if _, ok := s.canonical[raw]; ok {
		return
	}
	s.canonical[raw] = canonical
	s.teamKeys = append(s.teamKeys, raw)
}

func (s *snapshot) addSummary(raw, summary string) bool {
	if raw == "" || summary == "" {
		return false
	}
	if _, ok := s.summary[raw]; ok {
		return false
	}
	s.summary[raw] = summary
	s.marketKeys = append(s.marketKeys, raw)
	return true
}

func (s *snapshot) addOpponent(team, opponent string) {
	key := normalize.Fold(team)
	c, ok := s.opponents[key]
	if !ok {
		c = newCounter()
		s.opponents[key] = c
	}
	c.add(opponent)
}

// counter is a multiset that remembers first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(v string) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

func (c *counter) top() (string, bool) {
	best, bestN := "", 0
	for _, v := range c.order {
		if n := c.counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}
