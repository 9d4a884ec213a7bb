package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/sheets"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.InDelta(t, 4000.0, cfg.Bank.Total, 0.001)
	assert.Equal(t, 100, cfg.Bank.DefaultScale)
	assert.Empty(t, cfg.Scales)
	assert.Equal(t, []string{"por", "eng"}, cfg.OCR.Languages)
	assert.Equal(t, 2, cfg.OCR.Workers)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "📅", cfg.Normalize.Marker)
	assert.NotEmpty(t, cfg.Normalize.NoisePatterns)
	assert.InDelta(t, 85.0, cfg.History.FuzzyThreshold, 0.001)
	assert.Equal(t, BackendSQLite, cfg.Dedup.Backend)
	assert.True(t, strings.HasSuffix(cfg.Dedup.SQLitePath, "seen.db"))
	assert.Equal(t, slog.LevelInfo, cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Nil(t, cfg.Extract.Sports)
	assert.Nil(t, cfg.Extract.Bookmakers)
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := Load(newViper(t, `
logging:
  level: debug
  format: json
bank:
  total: 2000
  default_scale: 50
  scales:
    "-1001": 200
    "-1002": 25
telegram:
  token: abc
  chats: [-1001, -1002]
  admins: "42,43"
ocr:
  languages: [eng]
  workers: 4
normalize:
  noise_patterns: ["^Publicidade"]
history:
  fuzzy_threshold: 90
  aliases:
    Fla: Flamengo
  reload_schedule: "@every 30m"
dedup:
  backend: redis
  redis_addr: localhost:6379
extract:
  competitions: [Brasileirão]
  sports:
    - tag: Futebol
      keywords: [gol, escanteio]
  bookmakers:
    - keyword: kto
      name: KTO
      url_only: true
`))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.InDelta(t, 2000.0, cfg.Bank.Total, 0.001)
	assert.Equal(t, map[int64]int{-1001: 200, -1002: 25}, cfg.Scales)
	assert.Equal(t, []int64{-1001, -1002}, cfg.Telegram.Chats)
	assert.Equal(t, []int64{42, 43}, cfg.Telegram.Admins)
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, 4, cfg.OCR.Workers)
	assert.Equal(t, []string{"^Publicidade"}, cfg.Normalize.NoisePatterns)
	assert.InDelta(t, 90.0, cfg.History.FuzzyThreshold, 0.001)
	assert.Equal(t, "Flamengo", cfg.History.Aliases["fla"])
	assert.Equal(t, "@every 30m", cfg.History.ReloadSchedule)
	assert.Equal(t, BackendRedis, cfg.Dedup.Backend)
	assert.Equal(t, "localhost:6379", cfg.Dedup.Redis.Addr)
	assert.Equal(t, []string{"Brasileirão"}, cfg.Extract.Competitions)
	require.Len(t, cfg.Extract.Sports, 1)
	assert.Equal(t, "Futebol", cfg.Extract.Sports[0].Tag)
	assert.Equal(t, []string{"gol", "escanteio"}, cfg.Extract.Sports[0].Keywords)
	require.Len(t, cfg.Extract.Bookmakers, 1)
	assert.Equal(t, "KTO", cfg.Extract.Bookmakers[0].Name)
	assert.True(t, cfg.Extract.Bookmakers[0].URLOnly)

	policy := cfg.Policy()
	assert.Equal(t, 200, policy.ScaleFor(-1001))
	assert.Equal(t, 50, policy.ScaleFor(7))
	require.NoError(t, cfg.RequireTelegram())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "negative bank",
			yaml:    "bank:\n  total: -1\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero scale",
			yaml:    "bank:\n  default_scale: 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero per-chat scale",
			yaml:    "bank:\n  scales:\n    \"-1\": 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "threshold above 100",
			yaml:    "history:\n  fuzzy_threshold: 101\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no ocr workers",
			yaml:    "ocr:\n  workers: 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown backend",
			yaml:    "dedup:\n  backend: etcd\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "redis without address",
			yaml:    "dedup:\n  backend: redis\n",
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "metrics path without slash",
			yaml:    "metrics:\n  listen: \":9090\"\n  path: metrics\n",
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadBadIDs(t *testing.T) {
	_, err := Load(newViper(t, "telegram:\n  chats: [abc]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.chats")

	_, err = Load(newViper(t, "bank:\n  scales:\n    \"-1\": many\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bank.scales")
}

func TestRequireTelegram(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.RequireTelegram(), common.ErrMissingConfig)
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Run("viper wins over env", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
		v := newViper(t, "sheets:\n  spreadsheet_id: from-file\n  tab: Apostas\n  retry_attempts: 5\n")

		cfg := LoadSheetsConfig(v)
		assert.Equal(t, "from-file", cfg.SpreadsheetID)
		assert.Equal(t, "Apostas", cfg.Tab)
		assert.Equal(t, 5, cfg.RetryAttempts)
	})

	t.Run("env fallback and default tab", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "client")

		cfg := LoadSheetsConfig(newViper(t, ""))
		assert.Equal(t, "from-env", cfg.SpreadsheetID)
		assert.Equal(t, "client", cfg.ClientID)
		assert.Equal(t, sheets.DefaultTab, cfg.Tab)
		assert.Equal(t, 3, cfg.RetryAttempts)
	})

	t.Run("service account path is expanded", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		cfg := LoadSheetsConfig(newViper(t, "sheets:\n  service_account_path: ~/sa.json\n"))
		assert.Equal(t, filepath.Join(home, "sa.json"), cfg.ServiceAccountPath)
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PLANILHADOR_TEST_DIR", "/srv/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/seen.db", filepath.Join(home, "seen.db")},
		{"$PLANILHADOR_TEST_DIR/seen.db", "/srv/data/seen.db"},
		{"/abs/path", "/abs/path"},
		{"relative/~", "relative/~"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, "/xdg/planilhador", DefaultDataDir())
}
