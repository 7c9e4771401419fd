package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reddittrack/internal/config"
)

// LogFilePattern matches the per-day files written under the log directory.
const LogFilePattern = "reddittrack-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format selects the console rendering: "console" or "json".
	Format string
	// Console receives human output. Nil means stdout.
	Console io.Writer
	// FilePath, when set, receives a JSON copy of every record regardless of Format.
	FilePath string
	// Source adds file:line to every record. Debug level implies it.
	Source bool
}

// New constructs a slog logger from opts.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	source := opts.Source || level.Level() <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	var handlers []slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handlers = append(handlers, newPrettyHandler(console, level, source))
	case "json":
		handlers = append(handlers, newJSONHandler(console, level, source))
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openAppend(path)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, newJSONHandler(file, level, source))
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig builds the application logger: console output on stdout and,
// when a log directory is configured, a JSON copy in that day's file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = DailyLogPath(dir, time.Now())
	}
	return New(opts)
}

// DailyLogPath returns the log file used for the given day.
func DailyLogPath(dir string, day time.Time) string {
	return filepath.Join(dir, "reddittrack-"+day.Format("20060102")+".log")
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	switch v := strings.ToLower(strings.TrimSpace(level)); v {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}
