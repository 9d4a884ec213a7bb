package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/ocr"
)

// ImageFunc fetches the image attached to a message.
type ImageFunc func(ctx context.Context) ([]byte, error)

// Event is an inbound message before OCR. Image is nil for text-only
// messages.
type Event struct {
	Image ImageFunc
	Input model.RawInput
}

// MessageProcessor processes one message with its OCR text filled in.
type MessageProcessor interface {
	Process(ctx context.Context, in model.RawInput) ([]model.ResolvedBet, error)
}

// Dispatcher runs one goroutine per event. Image download and OCR share a
// bounded pool so a burst of screenshots cannot starve text-only messages.
type Dispatcher struct {
	proc    MessageProcessor
	engine  ocr.Engine
	sem     *semaphore.Weighted
	metrics *Metrics
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. A nil engine disables OCR.
func NewDispatcher(proc MessageProcessor, engine ocr.Engine, workers int, metrics *Metrics, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if engine == nil {
		engine = ocr.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		proc:    proc,
		engine:  engine,
		sem:     semaphore.NewWeighted(int64(workers)),
		metrics: metrics,
		logger:  logger,
	}
}

// Submit handles ev in the background. Errors are logged.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.Handle(ctx, ev); err != nil {
			d.logger.Warn("Message abandoned",
				"chat_id", ev.Input.ChatID,
				"message_id", ev.Input.MessageID,
				"error", err,
			)
		}
	}()
}

// Handle runs OCR when the event has an image and then processes it.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) ([]model.ResolvedBet, error) {
	d.metrics.started()
	defer d.metrics.finished()

	in := ev.Input
	if ev.Image != nil && in.OCRText == "" {
		text, err := d.recognize(ctx, ev.Image)
		if err != nil {
			return nil, err
		}
		in.OCRText = text
	}
	return d.proc.Process(ctx, in)
}

// recognize fails only when ctx is done. A failed download or an empty
// recognition leaves the message to be processed from its caption.
func (d *Dispatcher) recognize(ctx context.Context, image ImageFunc) (string, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer d.sem.Release(1)

	start := time.Now()
	defer func() { d.metrics.observeOCR(time.Since(start)) }()

	data, err := image(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.logger.Warn("Failed to fetch image; using caption only", "error", err)
		return "", nil
	}
	return d.engine.Recognize(ctx, data), nil
}

// Wait blocks until every submitted event has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
