package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/paterrx/planilhador-telegram/internal/cli"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/pipeline"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

// maxReplayLine bounds one JSON line; captions are short but OCR text of a
// long print can be several kilobytes.
const maxReplayLine = 1 << 20

// replayMessage is one line of a replay file.
type replayMessage struct {
	Date      time.Time `json:"date"`
	Text      string    `json:"text"`
	OCRText   string    `json:"ocr_text"`
	Image     string    `json:"image"`
	ChatName  string    `json:"chat_name"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
}

func replayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file.jsonl>",
		Short: "Process exported messages from a JSON Lines file",
		Long: `Feed previously exported messages through the pipeline in file order.

Each line is a JSON object with the fields date, chat_id, chat_name,
message_id, text, ocr_text and image. image is a path relative to the file
and is read with OCR when ocr_text is empty.

Bets are recorded to the sheet and the seen set exactly as the bot would,
so replaying the same file twice marks every bet as a duplicate. Use
--dry-run to only print a summary.`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().Bool("dry-run", false, "do not write to the sheet or the seen set")
	cmd.Flags().Bool("offline", false, "do not use Google Sheets")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	offline, _ := cmd.Flags().GetBool("offline")

	messages, err := readReplayFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	book, err := openLedger(ctx, cfg, offline)
	if err != nil {
		return err
	}
	var seen seenStore
	if dryRun {
		book = readOnly{book}
		seen, err = storage.NewSQLiteStore(ctx, storage.MemoryPath)
	} else {
		seen, err = openSeenStore(ctx, cfg)
	}
	if err != nil {
		return err
	}

	parts, err := buildPipeline(ctx, cfg, book, seen, replayNamer(messages), nil)
	if err != nil {
		_ = seen.Close()
		return err
	}
	defer parts.Close()

	dispatcher := pipeline.NewDispatcher(parts.processor, newEngine(cfg), cfg.OCR.Workers, nil, slog.Default())
	bar := cli.NewProgress(cmd.ErrOrStderr(), len(messages), "Replaying")

	var found, duplicates, empty int
	base := filepath.Dir(args[0])
	for _, msg := range messages {
		ev := pipeline.Event{Input: model.RawInput{
			Timestamp: msg.Date,
			Text:      msg.Text,
			OCRText:   msg.OCRText,
			ChatID:    msg.ChatID,
			MessageID: msg.MessageID,
		}}
		if msg.Image != "" && msg.OCRText == "" {
			path := msg.Image
			if !filepath.IsAbs(path) {
				path = filepath.Join(base, path)
			}
			ev.Image = fileImage(path)
		}

		bets, err := dispatcher.Handle(ctx, ev)
		if err != nil {
			return err
		}
		if len(bets) == 0 {
			empty++
		}
		for _, b := range bets {
			found++
			if b.IsDuplicate {
				duplicates++
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	title := "Replay complete"
	if dryRun {
		title += " (dry run)"
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" "+title, cli.RenderFields([]cli.Field{
		{Label: "Messages", Value: strconv.Itoa(len(messages))},
		{Label: "Without bets", Value: strconv.Itoa(empty)},
		{Label: "Bets", Value: strconv.Itoa(found)},
		{Label: "Duplicates", Value: strconv.Itoa(duplicates)},
	})))
	return err
}

func readReplayFile(path string) ([]replayMessage, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Debug("Failed to close replay file", "error", cerr)
		}
	}()

	var messages []replayMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxReplayLine)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var msg replayMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	return messages, nil
}

// replayNamer names chats from the chat_name fields of the file.
func replayNamer(messages []replayMessage) staticNames {
	names := make(staticNames)
	for _, m := range messages {
		if m.ChatName != "" {
			names[m.ChatID] = m.ChatName
		}
	}
	return names
}
