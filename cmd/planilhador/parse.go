package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paterrx/planilhador-telegram/internal/cli"
	"github.com/paterrx/planilhador-telegram/internal/config"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/pipeline"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Extract bets from one message without recording them",
		Long: `Run one message through the pipeline and print the bets it contains.

The message text is taken from the arguments, or from stdin when there are
none. Nothing is written to the sheet or the seen set. History is read from
the configured sheet unless --offline is set.`,
		Example: `  planilhador parse "Flamengo x Palmeiras" "Mais de 2.5 gols @1.90" "Stake 1%"
  planilhador parse --image print.jpg --chat -1001234 < caption.txt`,
		RunE: runParse,
	}

	cmd.Flags().String("image", "", "image file to read with OCR")
	cmd.Flags().Int64("chat", 0, "chat id the message came from, for per-chat scales")
	cmd.Flags().Bool("offline", false, "do not read history from Google Sheets")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	imagePath, _ := cmd.Flags().GetString("image")
	chatID, _ := cmd.Flags().GetInt64("chat")
	offline, _ := cmd.Flags().GetBool("offline")

	text, err := messageText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if text == "" && imagePath == "" {
		return fmt.Errorf("no message: pass text as arguments, on stdin, or use --image")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	bets, err := parseMessage(ctx, cfg, offline, model.RawInput{
		Timestamp: time.Now(),
		Text:      text,
		ChatID:    chatID,
	}, imagePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(bets) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatWarning("No bets found"))
		return err
	}
	for i, bet := range bets {
		if _, err := fmt.Fprintln(out, cli.RenderBet(i+1, bet)); err != nil {
			return err
		}
	}
	return nil
}

// parseMessage runs in through a throwaway pipeline: an in-memory sink and
// seen set, with history from the sheet unless offline.
func parseMessage(ctx context.Context, cfg *config.Config, offline bool, in model.RawInput, imagePath string) ([]model.ResolvedBet, error) {
	book, err := openLedger(ctx, cfg, offline)
	if err != nil {
		return nil, err
	}
	seen, err := storage.NewSQLiteStore(ctx, storage.MemoryPath)
	if err != nil {
		return nil, err
	}

	parts, err := buildPipeline(ctx, cfg, readOnly{book}, seen, staticNames(nil), nil)
	if err != nil {
		_ = seen.Close()
		return nil, err
	}
	defer parts.Close()

	dispatcher := pipeline.NewDispatcher(parts.processor, newEngine(cfg), 1, nil, slog.Default())
	ev := pipeline.Event{Input: in}
	if imagePath != "" {
		ev.Image = fileImage(imagePath)
	}
	return dispatcher.Handle(ctx, ev)
}

// messageText joins args into one message, one argument per line, or reads
// r when there are no args.
func messageText(r io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// fileImage reads an image from disk for OCR.
func fileImage(path string) pipeline.ImageFunc {
	return func(context.Context) ([]byte, error) {
		return os.ReadFile(path) //nolint:gosec // operator-supplied path
	}
}

// readOnly keeps history reads from the wrapped ledger but drops appends.
type readOnly struct {
	ledger
}

func (readOnly) Append(context.Context, model.Record) error { return nil }
