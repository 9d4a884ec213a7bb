package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/config"
	"github.com/paterrx/planilhador-telegram/internal/dedup"
	"github.com/paterrx/planilhador-telegram/internal/extract"
	"github.com/paterrx/planilhador-telegram/internal/history"
	"github.com/paterrx/planilhador-telegram/internal/normalize"
	"github.com/paterrx/planilhador-telegram/internal/ocr"
	"github.com/paterrx/planilhador-telegram/internal/pipeline"
	"github.com/paterrx/planilhador-telegram/internal/sheets"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

// ledger is the ground truth table: history is learned from it and
// recorded bets are appended to it.
type ledger interface {
	history.GroundTruth
	pipeline.Sink
}

// seenStore is a seen-set backend that can be closed.
type seenStore interface {
	dedup.SeenStore
	Count(ctx context.Context) (int, error)
	Close() error
}

// openLedger connects to the configured sheet, or returns an empty
// in-memory table when offline is set.
func openLedger(ctx context.Context, cfg *config.Config, offline bool) (ledger, error) {
	if offline {
		slog.Debug("Using in-memory ledger")
		return sheets.NewMemoryStore(nil), nil
	}
	store, err := sheets.NewStore(ctx, cfg.Sheets, slog.Default())
	if err != nil {
		return nil, common.NewUserError(
			"Could not open the Google Sheet; check sheets.spreadsheet_id and credentials (see 'planilhador auth sheets')", err)
	}
	return store, nil
}

// openSeenStore opens the configured seen-set backend.
func openSeenStore(ctx context.Context, cfg *config.Config) (seenStore, error) {
	switch cfg.Dedup.Backend {
	case config.BackendRedis:
		store, err := storage.NewRedisStore(ctx, cfg.Dedup.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis seen set: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		store, err := storage.NewSQLiteStore(ctx, storage.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory seen set: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewSQLiteStore(ctx, cfg.Dedup.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open seen set %s: %w", cfg.Dedup.SQLitePath, err)
		}
		return store, nil
	}
}

// newEngine returns the OCR engine, or ocr.Nop when OCR is disabled.
func newEngine(cfg *config.Config) ocr.Engine {
	if !cfg.OCR.Enabled {
		return ocr.Nop{}
	}
	return ocr.NewTesseract(cfg.OCR.Languages, slog.Default())
}

// pipelineParts groups what the commands share once the pipeline is built.
type pipelineParts struct {
	processor *pipeline.Processor
	history   *history.State
	tracker   *dedup.Tracker
	seen      seenStore
}

func (p *pipelineParts) Close() {
	if p.seen == nil {
		return
	}
	if err := p.seen.Close(); err != nil {
		slog.Warn("Failed to close seen set", "error", err)
	}
}

// buildPipeline loads history from book, opens the seen set and assembles
// the processor.
func buildPipeline(ctx context.Context, cfg *config.Config, book ledger, seen seenStore, namer pipeline.ChatNamer, metrics *pipeline.Metrics) (*pipelineParts, error) {
	norm, err := normalize.New(cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("invalid normalize settings: %w", err)
	}

	state, err := history.New(ctx, book, history.Options{
		Logger:         slog.Default(),
		Aliases:        cfg.History.Aliases,
		FuzzyThreshold: cfg.History.FuzzyThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	tracker, err := dedup.NewTracker(ctx, seen, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to load seen set: %w", err)
	}

	proc, err := pipeline.NewProcessor(pipeline.Deps{
		Normalizer: norm,
		Extractor:  extract.New(cfg.Extract),
		Resolver:   state,
		Dedup:      tracker,
		Sink:       book,
		Namer:      namer,
		Metrics:    metrics,
		Logger:     slog.Default(),
		Policy:     cfg.Policy(),
	})
	if err != nil {
		return nil, err
	}

	return &pipelineParts{processor: proc, history: state, tracker: tracker, seen: seen}, nil
}

// staticNames resolves chat names from a fixed table, falling back to the
// chat id. It stands in for the bot when replaying or parsing offline.
type staticNames map[int64]string

func (n staticNames) ChatName(_ context.Context, chatID int64) string {
	if name, ok := n[chatID]; ok {
		return name
	}
	return strconv.FormatInt(chatID, 10)
}
