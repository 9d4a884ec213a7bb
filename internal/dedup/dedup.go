// Package dedup fingerprints bets and remembers which fingerprints were
// already recorded.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Fingerprint is the SHA-256 of "home|away|market|odd". A missing odd is
// written as an empty field.
func Fingerprint(home, away, market string, odd *float64) string {
	oddStr := ""
	if odd != nil {
		oddStr = strconv.FormatFloat(*odd, 'f', -1, 64)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{home, away, market, oddStr}, "|")))
	return hex.EncodeToString(sum[:])
}

// SeenStore persists fingerprints across restarts.
type SeenStore interface {
	Load(ctx context.Context) ([]string, error)
	Add(ctx context.Context, id string) error
}

// SharedStore is a SeenStore that reports whether an add stored a new id.
// Trackers use it so that fingerprints recorded by other processes after
// startup are still detected.
type SharedStore interface {
	SeenStore
	AddNew(ctx context.Context, id string) (bool, error)
}

// Tracker is the in-memory seen set backed by a SeenStore. Every new id is
// written to the store as soon as it is marked.
type Tracker struct {
	store  SeenStore
	seen   map[string]struct{}
	logger *slog.Logger
	mu     sync.Mutex
}

// NewTracker loads the persisted ids from store. A nil store keeps the set
// in memory only.
func NewTracker(ctx context.Context, store SeenStore, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		store:  store,
		seen:   make(map[string]struct{}),
		logger: logger,
	}
	if store == nil {
		return t, nil
	}

	ids, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen fingerprints: %w", err)
	}
	for _, id := range ids {
		t.seen[id] = struct{}{}
	}
	logger.Debug("Seen fingerprints loaded", "count", len(t.seen))
	return t, nil
}

// IsSeen reports whether id was marked before.
func (t *Tracker) IsSeen(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[id]
	return ok
}

// MarkSeen adds id to the set and persists it when it is new.
func (t *Tracker) MarkSeen(ctx context.Context, id string) error {
	_, err := t.CheckAndMark(ctx, id)
	return err
}

// CheckAndMark atomically tests and marks id. It reports whether id had
// already been seen, either locally or, for a SharedStore, by any process
// writing to the same store. If persisting fails the in-memory mark is kept
// and the error is returned.
func (t *Tracker) CheckAndMark(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true, nil
	}
	t.seen[id] = struct{}{}

	if t.store == nil {
		return false, nil
	}
	if shared, ok := t.store.(SharedStore); ok {
		added, err := shared.AddNew(ctx, id)
		if err != nil {
			t.logger.Error("Failed to persist seen fingerprint", "fingerprint", id, "error", err)
			return false, fmt.Errorf("failed to persist fingerprint: %w", err)
		}
		if !added {
			t.logger.Debug("Fingerprint already recorded by another instance", "fingerprint", id)
		}
		return !added, nil
	}
	if err := t.store.Add(ctx, id); err != nil {
		t.logger.Error("Failed to persist seen fingerprint", "fingerprint", id, "error", err)
		return false, fmt.Errorf("failed to persist fingerprint: %w", err)
	}
	return false, nil
}

// Len returns the number of known fingerprints.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
