package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paterrx/planilhador-telegram/internal/model"
)

type recordingProcessor struct {
	inputs []model.RawInput
	mu     sync.Mutex
}

func (r *recordingProcessor) Process(_ context.Context, in model.RawInput) ([]model.ResolvedBet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	return nil, nil
}

func (r *recordingProcessor) seen() []model.RawInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RawInput(nil), r.inputs...)
}

// slowEngine tracks how many recognitions run at once.
type slowEngine struct {
	text    string
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (e *slowEngine) Recognize(_ context.Context, image []byte) string {
	n := e.running.Add(1)
	defer e.running.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(e.delay)
	return e.text + string(image)
}

func image(data string) ImageFunc {
	return func(context.Context) ([]byte, error) { return []byte(data), nil }
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestDispatcherHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("fills OCR text from the image", func(t *testing.T) {
		proc := &recordingProcessor{}
		metrics := NewMetrics(prometheus.NewRegistry())
		d := NewDispatcher(proc, &slowEngine{text: "ocr:"}, 1, metrics, quietLogger())

		_, err := d.Handle(ctx, Event{Input: model.RawInput{Text: "Stake 1%"}, Image: image("png")})
		require.NoError(t, err)

		got := proc.seen()
		require.Len(t, got, 1)
		assert.Equal(t, "ocr:png", got[0].OCRText)
		assert.Equal(t, "Stake 1%", got[0].Text)
		assert.Equal(t, 1, testutil.CollectAndCount(metrics.ocr))
	})

	t.Run("text-only message skips OCR", func(t *testing.T) {
		proc := &recordingProcessor{}
		engine := &slowEngine{text: "never"}
		d := NewDispatcher(proc, engine, 1, nil, quietLogger())

		_, err := d.Handle(ctx, Event{Input: model.RawInput{Text: "A x B"}})
		require.NoError(t, err)
		assert.Empty(t, proc.seen()[0].OCRText)
		assert.Equal(t, int32(0), engine.peak.Load())
	})

	t.Run("failed download falls back to caption", func(t *testing.T) {
		proc := &recordingProcessor{}
		d := NewDispatcher(proc, &slowEngine{}, 1, nil, quietLogger())

		failing := func(context.Context) ([]byte, error) { return nil, errors.New("404") }
		_, err := d.Handle(ctx, Event{Input: model.RawInput{Text: "caption"}, Image: failing})
		require.NoError(t, err)
		require.Len(t, proc.seen(), 1)
		assert.Empty(t, proc.seen()[0].OCRText)
	})

	t.Run("nil engine disables OCR", func(t *testing.T) {
		proc := &recordingProcessor{}
		d := NewDispatcher(proc, nil, 0, nil, nil)

		_, err := d.Handle(ctx, Event{Input: model.RawInput{Text: "caption"}, Image: image("png")})
		require.NoError(t, err)
		assert.Empty(t, proc.seen()[0].OCRText)
	})

	t.Run("cancelled context abandons the message", func(t *testing.T) {
		proc := &recordingProcessor{}
		d := NewDispatcher(proc, &slowEngine{}, 1, nil, quietLogger())
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := d.Handle(cctx, Event{Input: model.RawInput{Text: "caption"}, Image: image("png")})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, proc.seen())
	})
}

func TestDispatcherBoundsOCR(t *testing.T) {
	proc := &recordingProcessor{}
	engine := &slowEngine{delay: 20 * time.Millisecond}
	d := NewDispatcher(proc, engine, 2, nil, quietLogger())
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		d.Submit(ctx, Event{Input: model.RawInput{MessageID: i}, Image: image("x")})
	}
	for i := 8; i < 12; i++ {
		d.Submit(ctx, Event{Input: model.RawInput{MessageID: i, Text: "text only"}})
	}
	d.Wait()

	assert.Len(t, proc.seen(), 12)
	assert.LessOrEqual(t, engine.peak.Load(), int32(2))
	assert.Equal(t, int32(0), engine.running.Load())
}

func TestDispatcherEndToEnd(t *testing.T) {
	h := newHarness(t)
	d := NewDispatcher(h.proc, &slowEngine{text: "Corinthians x Santos\nOver 2.5 gols"}, 2, h.metrics, quietLogger())

	in := input("Stake 1%")
	bets, err := d.Handle(context.Background(), Event{Input: in, Image: image("")})
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, "Corinthians", bets[0].HomeRaw)
	assert.Equal(t, "Over 2.5 gols", bets[0].MarketRaw)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.inFlight), 0)
}
