package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	loadErr error
	addErr  error
	ids     []string
	mu      sync.Mutex
}

func (m *memStore) Load(_ context.Context) ([]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]string(nil), m.ids...), nil
}

func (m *memStore) Add(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.ids = append(m.ids, id)
	return nil
}

// sharedSet stands in for one store written by several processes.
type sharedSet struct {
	ids map[string]struct{}
	mu  sync.Mutex
}

func (s *sharedSet) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out, nil
}

func (s *sharedSet) Add(ctx context.Context, id string) error {
	_, err := s.AddNew(ctx, id)
	return err
}

func (s *sharedSet) AddNew(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false, nil
	}
	s.ids[id] = struct{}{}
	return true, nil
}

func odd(v float64) *float64 { return &v }

func TestFingerprint(t *testing.T) {
	a := Fingerprint("A", "B", "Over 2.5", odd(1.9))
	assert.Equal(t, a, Fingerprint("A", "B", "Over 2.5", odd(1.9)))
	assert.Len(t, a, 64)

	others := []string{
		Fingerprint("B", "A", "Over 2.5", odd(1.9)),
		Fingerprint("A", "B", "Over 2.5", odd(1.91)),
		Fingerprint("A", "B", "Over 2.5", nil),
		Fingerprint("A", "B", "", odd(1.9)),
	}
	for _, o := range others {
		assert.NotEqual(t, a, o)
	}

	// sha256("A|B|Over 2.5|1.9")
	assert.Equal(t, "a9a959d80199cb6903091da9d5418976baea484adc1d22eda7402b4079adb233", a)
	assert.Equal(t, Fingerprint("A", "B", "Over 2.5", odd(1.9)), Fingerprint("A", "B", "Over 2.5", odd(1.90)))
}

func TestTracker_DuplicateScenario(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	tr, err := NewTracker(ctx, store, nil)
	require.NoError(t, err)

	id := Fingerprint("A", "B", "Over 2.5", odd(1.9))
	assert.False(t, tr.IsSeen(id))

	dup, err := tr.CheckAndMark(ctx, id)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.True(t, tr.IsSeen(id))
	assert.Equal(t, []string{id}, store.ids)

	dup, err = tr.CheckAndMark(ctx, id)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Len(t, store.ids, 1)
}

func TestTracker_LoadsPersisted(t *testing.T) {
	store := &memStore{ids: []string{"x", "y"}}
	tr, err := NewTracker(context.Background(), store, nil)
	require.NoError(t, err)

	assert.True(t, tr.IsSeen("x"))
	assert.Equal(t, 2, tr.Len())

	_, err = NewTracker(context.Background(), &memStore{loadErr: errors.New("disk")}, nil)
	assert.Error(t, err)
}

func TestTracker_PersistFailureKeepsMark(t *testing.T) {
	store := &memStore{addErr: errors.New("read-only")}
	tr, err := NewTracker(context.Background(), store, nil)
	require.NoError(t, err)

	err = tr.MarkSeen(context.Background(), "z")
	require.Error(t, err)
	assert.True(t, tr.IsSeen("z"))
}

func TestTracker_SharedStoreAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := &sharedSet{ids: make(map[string]struct{})}

	// Both instances start before anything is recorded.
	a, err := NewTracker(ctx, store, nil)
	require.NoError(t, err)
	b, err := NewTracker(ctx, store, nil)
	require.NoError(t, err)

	id := Fingerprint("A", "B", "Over 2.5", odd(1.9))

	dup, err := b.CheckAndMark(ctx, id)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = a.CheckAndMark(ctx, id)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.True(t, a.IsSeen(id))

	dup, err = a.CheckAndMark(ctx, id)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestTracker_ConcurrentCheckAndMark(t *testing.T) {
	tr, err := NewTracker(context.Background(), nil, nil)
	require.NoError(t, err)

	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dup, err := tr.CheckAndMark(context.Background(), "same")
			assert.NoError(t, err)
			if !dup {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), firsts.Load())
}
