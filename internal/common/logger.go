package common

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions describes where and how log lines are written.
type LogOptions struct {
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Level      slog.Level
}

// SetupLogger configures the global logger with appropriate settings.
func SetupLogger(level slog.Level, format string) error {
	return SetupLoggerWithOptions(LogOptions{Level: level, Format: format})
}

// SetupLoggerWithOptions configures the global logger. When File is set,
// output goes to stderr and to a rotating file.
func SetupLoggerWithOptions(o LogOptions) error {
	slog.SetDefault(slog.New(newHandler(logWriter(o), o.Level, o.Format)))
	return nil
}

func logWriter(o LogOptions) io.Writer {
	if o.File == "" {
		return os.Stderr
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 50
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 5
	}
	rotating := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		Compress:   true,
	}
	return io.MultiWriter(os.Stderr, rotating)
}

func newHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
