package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/paterrx/planilhador-telegram/internal/config"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/pipeline"
	"github.com/paterrx/planilhador-telegram/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen to Telegram and record every bet",
		Long: `Connect to Telegram and process every message from the monitored chats.

Each message is read from its caption and, when it carries a photo, from the
photo's text. Every bet found is sized and appended to the Google Sheet.
Admins can send /reload to refresh history from the sheet and /stats for a
summary.

Use --discover to log the id of every chat the bot sees, which is how you
find the ids for telegram.chats.`,
		RunE: runBot,
	}

	cmd.Flags().Bool("discover", false, "log the id and title of every chat that sends a message")
	cmd.Flags().Bool("offline", false, "do not use Google Sheets; record into memory only")

	return cmd
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	discover, _ := cmd.Flags().GetBool("discover")
	offline, _ := cmd.Flags().GetBool("offline")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	book, err := openLedger(ctx, cfg, offline)
	if err != nil {
		return err
	}
	seen, err := openSeenStore(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)

	var parts *pipelineParts
	bot, err := telegram.New(cfg.Telegram.Token, telegram.Options{
		Logger:      slog.Default(),
		Chats:       cfg.Telegram.Chats,
		Admins:      cfg.Telegram.Admins,
		PollTimeout: cfg.Telegram.PollTimeout,
		Discover:    discover,
		Commands: map[string]telegram.CommandFunc{
			"reload": func(ctx context.Context) (string, error) {
				return reloadHistory(ctx, parts)
			},
			"stats": func(ctx context.Context) (string, error) {
				return statsLine(ctx, parts)
			},
		},
	})
	if err != nil {
		_ = seen.Close()
		return err
	}

	parts, err = buildPipeline(ctx, cfg, book, seen, bot, metrics)
	if err != nil {
		_ = seen.Close()
		return err
	}
	defer parts.Close()

	scheduler, err := startReloadSchedule(ctx, cfg, parts)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	if cfg.Metrics.Listen != "" {
		stop := serveMetrics(cfg.Metrics, reg)
		defer stop()
	}

	dispatcher := pipeline.NewDispatcher(parts.processor, newEngine(cfg), cfg.OCR.Workers, metrics, slog.Default())
	defer dispatcher.Wait()

	slog.Info("Bot running; press Ctrl+C to stop",
		"chats", len(cfg.Telegram.Chats),
		"ocr", cfg.OCR.Enabled,
		"dedup", cfg.Dedup.Backend,
		"offline", offline)

	return bot.Run(ctx, func(ctx context.Context, msg telegram.Message) {
		dispatcher.Submit(ctx, toEvent(bot, msg))
	})
}

// toEvent converts a Telegram message into a pipeline event. The photo is
// downloaded lazily by the OCR worker that handles it.
func toEvent(bot *telegram.Bot, msg telegram.Message) pipeline.Event {
	ev := pipeline.Event{Input: model.RawInput{
		Timestamp: msg.Time,
		Text:      msg.Text,
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
	}}
	if msg.HasPhoto() {
		fileID := msg.PhotoFileID
		ev.Image = func(ctx context.Context) ([]byte, error) {
			return bot.Download(ctx, fileID)
		}
	}
	return ev
}

func reloadHistory(ctx context.Context, parts *pipelineParts) (string, error) {
	if parts == nil {
		return "", errors.New("pipeline is not ready")
	}
	if err := parts.history.Reload(ctx); err != nil {
		return "", err
	}
	st := parts.history.Stats()
	return fmt.Sprintf("History reloaded: %d rows, %d teams, %d markets.", st.Rows, st.Teams, st.Markets), nil
}

func statsLine(_ context.Context, parts *pipelineParts) (string, error) {
	if parts == nil {
		return "", errors.New("pipeline is not ready")
	}
	st := parts.history.Stats()
	return fmt.Sprintf("History: %d rows, %d teams, %d markets, %d opponents (loaded %s).\nSeen bets: %d.",
		st.Rows, st.Teams, st.Markets, st.Opponents, st.LoadedAt.Format(time.RFC3339), parts.tracker.Len()), nil
}

// startReloadSchedule reloads history on history.reload_schedule. It
// returns nil when no schedule is configured.
func startReloadSchedule(ctx context.Context, cfg *config.Config, parts *pipelineParts) (*cron.Cron, error) {
	if cfg.History.ReloadSchedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.History.ReloadSchedule, func() {
		if _, err := reloadHistory(ctx, parts); err != nil {
			slog.Error("Scheduled history reload failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid history.reload_schedule %q: %w", cfg.History.ReloadSchedule, err)
	}
	c.Start()
	slog.Info("History reload scheduled", "schedule", cfg.History.ReloadSchedule)
	return c, nil
}

// serveMetrics exposes reg over HTTP and returns a function that shuts the
// server down.
func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info("Serving metrics", "addr", cfg.Listen, "path", cfg.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("Failed to shut down metrics server", "error", err)
		}
	}
}
