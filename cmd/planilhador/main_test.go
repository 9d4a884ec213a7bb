package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paterrx/planilhador-telegram/internal/config"
	"github.com/paterrx/planilhador-telegram/internal/model"
	"github.com/paterrx/planilhador-telegram/internal/sheets"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("ocr.enabled", false)
	v.Set("dedup.backend", config.BackendMemory)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		args  []string
	}{
		{name: "args become lines", args: []string{"A x B", "Over 2.5"}, want: "A x B\nOver 2.5"},
		{name: "stdin is trimmed", input: "  A x B\nStake 1%\n\n", want: "A x B\nStake 1%"},
		{name: "args win over stdin", input: "ignored", args: []string{"A x B"}, want: "A x B"},
		{name: "empty stdin", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := messageText(strings.NewReader(tt.input), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMessageOffline(t *testing.T) {
	cfg := testConfig(t)
	in := model.RawInput{Text: "Flamengo x Palmeiras\nMais de 2.5 gols\nOdd 1.90\nStake 1%", ChatID: -1}

	bets, err := parseMessage(context.Background(), cfg, true, in, "")
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, "Flamengo", bets[0].CanonicalHome)
	assert.Equal(t, "Palmeiras", bets[0].CanonicalAway)
	assert.InDelta(t, 40, bets[0].Amount, 1e-9)
	assert.False(t, bets[0].IsDuplicate)

	// Each parse starts from an empty seen set.
	again, err := parseMessage(context.Background(), cfg, true, in, "")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.False(t, again[0].IsDuplicate)
}

func TestParseMessageMissingImage(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.Enabled = true

	in := model.RawInput{Text: "Flamengo x Palmeiras\nMais de 2.5 gols\nStake 1%"}
	bets, err := parseMessage(context.Background(), cfg, true, in, filepath.Join(t.TempDir(), "missing.png"))
	require.NoError(t, err, "an unreadable image falls back to the caption")
	assert.Len(t, bets, 1)
}

func TestReadReplayFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "ok.jsonl")
		content := `{"date":"2025-03-01T18:00:00Z","chat_id":-100,"chat_name":"Tips","message_id":1,"text":"A x B"}

{"chat_id":-200,"message_id":2,"ocr_text":"C x D","image":"p.jpg"}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		got, err := readReplayFile(path)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(-100), got[0].ChatID)
		assert.Equal(t, "Tips", got[0].ChatName)
		assert.Equal(t, 2025, got[0].Date.Year())
		assert.Equal(t, "C x D", got[1].OCRText)
		assert.Equal(t, "p.jpg", got[1].Image)

		names := replayNamer(got)
		assert.Equal(t, "Tips", names.ChatName(context.Background(), -100))
		assert.Equal(t, "-200", names.ChatName(context.Background(), -200))
	})

	t.Run("bad line", func(t *testing.T) {
		path := filepath.Join(dir, "bad.jsonl")
		require.NoError(t, os.WriteFile(path, []byte("{\"text\":\"ok\"}\nnot json\n"), 0o600))

		_, err := readReplayFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.jsonl:2")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readReplayFile(filepath.Join(dir, "nope.jsonl"))
		require.Error(t, err)
	})
}

func TestMaskSecrets(t *testing.T) {
	settings := map[string]any{
		"telegram": map[string]any{"token": "123:abc", "chats": []any{"-1"}},
		"sheets":   map[string]any{"refresh_token": "r", "client_secret": "", "tab": "APOSTAS_BOT"},
		"dedup":    map[string]any{"redis_password": "pw", "backend": "redis"},
	}

	got := maskSecrets(settings)
	assert.Equal(t, "********", got["telegram"].(map[string]any)["token"])
	assert.Equal(t, []any{"-1"}, got["telegram"].(map[string]any)["chats"])
	assert.Equal(t, "********", got["sheets"].(map[string]any)["refresh_token"])
	assert.Equal(t, "", got["sheets"].(map[string]any)["client_secret"], "empty secrets stay visible as empty")
	assert.Equal(t, "APOSTAS_BOT", got["sheets"].(map[string]any)["tab"])
	assert.Equal(t, "********", got["dedup"].(map[string]any)["redis_password"])
	assert.Equal(t, "123:abc", settings["telegram"].(map[string]any)["token"], "input is not modified")
}

func TestStartReloadSchedule(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := startReloadSchedule(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.History.ReloadSchedule = "every so often"
	_, err = startReloadSchedule(ctx, cfg, nil)
	require.Error(t, err)

	cfg.History.ReloadSchedule = "@every 1h"
	c, err = startReloadSchedule(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, c)
	<-c.Stop().Done()
}

func TestOperatorCommands(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	seen, err := storage.NewSQLiteStore(ctx, storage.MemoryPath)
	require.NoError(t, err)
	parts, err := buildPipeline(ctx, cfg, sheets.NewMemoryStore(nil), seen, staticNames(nil), nil)
	require.NoError(t, err)
	defer parts.Close()

	reply, err := reloadHistory(ctx, parts)
	require.NoError(t, err)
	assert.Contains(t, reply, "History reloaded: 0 rows")

	_, err = parts.processor.Process(ctx, model.RawInput{Text: "Flamengo x Palmeiras\nMais de 2.5 gols\nStake 1%"})
	require.NoError(t, err)

	reply, err = statsLine(ctx, parts)
	require.NoError(t, err)
	assert.Contains(t, reply, "Seen bets: 1.")
}

func TestOperatorCommandsBeforeStart(t *testing.T) {
	_, err := reloadHistory(context.Background(), nil)
	require.Error(t, err)
	_, err = statsLine(context.Background(), nil)
	require.Error(t, err)
}

func TestOpenSeenStore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	cfg.Dedup.Backend = config.BackendSQLite
	cfg.Dedup.SQLitePath = filepath.Join(t.TempDir(), "seen.db")
	store, err := openSeenStore(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, strings.Repeat("a", 64)))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, store.Close())
}

func TestReportSeen(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, storage.MemoryPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	known := strings.Repeat("a", 64)
	unknown := strings.Repeat("b", 64)
	require.NoError(t, store.Add(ctx, known))

	var out bytes.Buffer
	require.NoError(t, reportSeen(ctx, &out, store, []string{known, unknown}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Seen "+known)
	assert.Contains(t, lines[1], "Not seen "+unknown)
}

func TestSeenForgetHelp(t *testing.T) {
	cmd := seenForgetCmd()
	assert.Contains(t, cmd.Long, "until it restarts")
}
