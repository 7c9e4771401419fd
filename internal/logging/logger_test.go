package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reddittrack/internal/config"
	"reddittrack/internal/logging"
)

func TestNewFromConfigWritesDailyJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("run started", logging.String(logging.FieldRunID, "abc"))

	path := logging.DailyLogPath(cfg.Paths.LogDir, time.Now())
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "run started" || record["run_id"] != "abc" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestConsoleLoggerPrefixesRunAndCommunity(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithCommunity(logging.WithRunID(context.Background(), "3f2a9c1e-77aa-4b1c"), "golang")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "collector")).Info("community collected",
		logging.Int("scanned", 42),
		logging.String("note", "two words"),
	)

	line := buf.String()
	for _, want := range []string{"INFO  [3f2a9c1e r/golang] collector: community collected", "scanned=42", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "run_id=") || strings.Contains(line, ".go:") {
		t.Fatalf("unexpected fields in %q", line)
	}
}

func TestConsoleLoggerPutsHintOnContinuationLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "ledger unreadable", "ledger_load_failed",
		logging.String(logging.FieldImpact, "all posts treated as new"),
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "WARN  ledger unreadable") || !strings.Contains(lines[0], "event_type=ledger_load_failed") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if lines[1] != "    hint: check the log file for the preceding lines | impact: all posts treated as new" {
		t.Fatalf("unexpected continuation %q", lines[1])
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected level filtering: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "ledger unreadable", "ledger_load_failed",
		logging.Error(errors.New("bad json")),
		logging.String(logging.FieldImpact, "all posts treated as new"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "ledger_load_failed" {
		t.Fatalf("unexpected event type: %v", record)
	}
	if record[logging.FieldErrorHint] != "check the log file for the preceding lines" {
		t.Fatalf("expected default hint: %v", record)
	}
	if record[logging.FieldImpact] != "all posts treated as new" {
		t.Fatalf("explicit impact should win: %v", record)
	}
}

func TestWithContextAddsRunAndCommunity(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.WithCommunity(logging.WithRunID(context.Background(), "run-1"), "golang")
	logging.WithContext(ctx, base).Info("scan")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldRunID] != "run-1" || record[logging.FieldCommunity] != "golang" {
		t.Fatalf("missing context fields: %v", record)
	}
	if logging.WithContext(context.Background(), base) != base {
		t.Fatal("expected base logger when context carries no fields")
	}
}

func TestPruneLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := filepath.Join(dir, "reddittrack-20200101.log")
	fresh := filepath.Join(dir, "reddittrack-20990101.log")
	today := logging.DailyLogPath(dir, now)
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, today, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := now.AddDate(0, 0, -40)
	for _, path := range []string{old, today, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneLogs(logging.NewNop(), dir, 30, now); removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed", old)
	}
	for _, path := range []string{fresh, today, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if logging.PruneLogs(nil, dir, 0, now) != 0 {
		t.Fatal("zero retention must disable pruning")
	}
}
