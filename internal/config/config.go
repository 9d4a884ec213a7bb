package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/paterrx/planilhador-telegram/internal/common"
	"github.com/paterrx/planilhador-telegram/internal/extract"
	"github.com/paterrx/planilhador-telegram/internal/history"
	"github.com/paterrx/planilhador-telegram/internal/normalize"
	"github.com/paterrx/planilhador-telegram/internal/ocr"
	"github.com/paterrx/planilhador-telegram/internal/reconcile"
	"github.com/paterrx/planilhador-telegram/internal/sheets"
	"github.com/paterrx/planilhador-telegram/internal/storage"
)

// Seen-set backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the complete, validated runtime configuration.
type Config struct {
	Scales    map[int64]int
	Extract   extract.Config
	Normalize normalize.Config
	Sheets    sheets.Config
	Logging   common.LogOptions
	Telegram  TelegramConfig
	History   HistoryConfig
	Dedup     DedupConfig
	OCR       OCRConfig
	Metrics   MetricsConfig
	Bank      BankConfig
}

// BankConfig sizes bets: one unit is Total / scale.
type BankConfig struct {
	Total        float64
	DefaultScale int
}

// TelegramConfig configures the message source.
type TelegramConfig struct {
	Token       string
	Chats       []int64
	Admins      []int64
	PollTimeout int
}

// OCRConfig configures image text recognition.
type OCRConfig struct {
	Languages []string
	Workers   int
	Enabled   bool
}

// HistoryConfig configures the canonical resolver.
type HistoryConfig struct {
	Aliases        map[string]string
	ReloadSchedule string
	FuzzyThreshold float64
}

// DedupConfig selects and configures the seen-set backend.
type DedupConfig struct {
	Backend    string
	SQLitePath string
	Redis      storage.RedisConfig
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen
// address disables it.
type MetricsConfig struct {
	Listen string
	Path   string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)

	v.SetDefault("bank.total", reconcile.DefaultBankTotal)
	v.SetDefault("bank.default_scale", reconcile.DefaultScale)

	v.SetDefault("telegram.poll_timeout", 60)

	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.languages", ocr.DefaultLanguages)
	v.SetDefault("ocr.workers", 2)

	v.SetDefault("normalize.marker", normalize.DefaultMarker)

	v.SetDefault("history.fuzzy_threshold", history.DefaultFuzzyThreshold)

	v.SetDefault("dedup.backend", BackendSQLite)
	v.SetDefault("dedup.sqlite_path", filepath.Join(DefaultDataDir(), "seen.db"))
	v.SetDefault("dedup.redis_key", storage.DefaultRedisKey)
	v.SetDefault("dedup.redis_timeout", 5*time.Second)

	v.SetDefault("metrics.path", "/metrics")
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: common.LogOptions{
			Level:      common.ParseLevel(v.GetString("logging.level")),
			Format:     v.GetString("logging.format"),
			File:       ExpandPath(v.GetString("logging.file")),
			MaxSizeMB:  v.GetInt("logging.max_size_mb"),
			MaxBackups: v.GetInt("logging.max_backups"),
		},
		Bank: BankConfig{
			Total:        v.GetFloat64("bank.total"),
			DefaultScale: v.GetInt("bank.default_scale"),
		},
		Telegram: TelegramConfig{
			Token:       v.GetString("telegram.token"),
			PollTimeout: v.GetInt("telegram.poll_timeout"),
		},
		OCR: OCRConfig{
			Enabled:   v.GetBool("ocr.enabled"),
			Languages: v.GetStringSlice("ocr.languages"),
			Workers:   v.GetInt("ocr.workers"),
		},
		Normalize: normalize.Config{
			Marker:        v.GetString("normalize.marker"),
			NoisePatterns: normalize.DefaultNoisePatterns(),
		},
		History: HistoryConfig{
			FuzzyThreshold: v.GetFloat64("history.fuzzy_threshold"),
			Aliases:        v.GetStringMapString("history.aliases"),
			ReloadSchedule: v.GetString("history.reload_schedule"),
		},
		Dedup: DedupConfig{
			Backend:    strings.ToLower(v.GetString("dedup.backend")),
			SQLitePath: ExpandPath(v.GetString("dedup.sqlite_path")),
			Redis: storage.RedisConfig{
				URL:      v.GetString("dedup.redis_url"),
				Addr:     v.GetString("dedup.redis_addr"),
				Password: v.GetString("dedup.redis_password"),
				DB:       v.GetInt("dedup.redis_db"),
				Key:      v.GetString("dedup.redis_key"),
				Timeout:  v.GetDuration("dedup.redis_timeout"),
			},
		},
		Metrics: MetricsConfig{
			Listen: v.GetString("metrics.listen"),
			Path:   v.GetString("metrics.path"),
		},
		Sheets: LoadSheetsConfig(v),
	}

	if v.IsSet("normalize.noise_patterns") {
		cfg.Normalize.NoisePatterns = v.GetStringSlice("normalize.noise_patterns")
	}

	var err error
	if cfg.Extract, err = loadExtract(v); err != nil {
		return nil, err
	}
	if cfg.Telegram.Chats, err = parseIDs(v.GetStringSlice("telegram.chats")); err != nil {
		return nil, fmt.Errorf("telegram.chats: %w", err)
	}
	if cfg.Telegram.Admins, err = parseIDs(v.GetStringSlice("telegram.admins")); err != nil {
		return nil, fmt.Errorf("telegram.admins: %w", err)
	}
	if cfg.Scales, err = parseScales(v.GetStringMapString("bank.scales")); err != nil {
		return nil, fmt.Errorf("bank.scales: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadExtract reads the keyword tables. A table that is not configured
// stays nil so the extractor uses its built-in default. Sports and
// bookmakers are lists of objects because viper folds map keys to lower
// case.
func loadExtract(v *viper.Viper) (extract.Config, error) {
	var cfg extract.Config
	if v.IsSet("extract.competitions") {
		cfg.Competitions = v.GetStringSlice("extract.competitions")
	}
	if v.IsSet("extract.sports") {
		if err := v.UnmarshalKey("extract.sports", &cfg.Sports); err != nil {
			return cfg, fmt.Errorf("extract.sports: %w", err)
		}
	}
	if v.IsSet("extract.bookmakers") {
		if err := v.UnmarshalKey("extract.bookmakers", &cfg.Bookmakers); err != nil {
			return cfg, fmt.Errorf("extract.bookmakers: %w", err)
		}
	}
	return cfg, nil
}

func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid chat id %q: %w", part, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseScales(raw map[string]string) (map[int64]int, error) {
	scales := make(map[int64]int, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", k, err)
		}
		scale, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid scale for chat %d: %w", id, err)
		}
		scales[id] = scale
	}
	return scales, nil
}

// Validate checks the settings every command needs. Telegram and Sheets
// credentials are checked by the commands that use them.
func (c *Config) Validate() error {
	if c.Bank.Total <= 0 {
		return fmt.Errorf("%w: bank.total must be positive, got %v", common.ErrInvalidConfig, c.Bank.Total)
	}
	if c.Bank.DefaultScale <= 0 {
		return fmt.Errorf("%w: bank.default_scale must be positive, got %d", common.ErrInvalidConfig, c.Bank.DefaultScale)
	}
	for id, scale := range c.Scales {
		if scale <= 0 {
			return fmt.Errorf("%w: bank.scales[%d] must be positive, got %d", common.ErrInvalidConfig, id, scale)
		}
	}
	if c.History.FuzzyThreshold < 0 || c.History.FuzzyThreshold > 100 {
		return fmt.Errorf("%w: history.fuzzy_threshold must be within 0..100, got %v", common.ErrInvalidConfig, c.History.FuzzyThreshold)
	}
	if c.OCR.Workers < 1 {
		return fmt.Errorf("%w: ocr.workers must be at least 1, got %d", common.ErrInvalidConfig, c.OCR.Workers)
	}
	if c.Normalize.Marker == "" {
		return fmt.Errorf("%w: normalize.marker is empty", common.ErrInvalidConfig)
	}

	switch c.Dedup.Backend {
	case BackendSQLite:
		if c.Dedup.SQLitePath == "" {
			return fmt.Errorf("%w: dedup.sqlite_path", common.ErrMissingConfig)
		}
	case BackendRedis:
		if c.Dedup.Redis.Addr == "" && c.Dedup.Redis.URL == "" {
			return fmt.Errorf("%w: dedup.redis_addr or dedup.redis_url", common.ErrMissingConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown dedup.backend %q", common.ErrInvalidConfig, c.Dedup.Backend)
	}

	if c.Metrics.Listen != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", common.ErrInvalidConfig)
	}
	return nil
}

// RequireTelegram checks the settings the run command needs beyond
// Validate.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token", common.ErrMissingConfig)
	}
	return nil
}

// Policy builds the sizing policy from the bank settings.
func (c *Config) Policy() reconcile.Policy {
	return reconcile.NewPolicy(c.Bank.Total, c.Bank.DefaultScale, c.Scales)
}
