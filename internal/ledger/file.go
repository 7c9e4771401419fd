package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

// fileState is the on-disk layout of the JSON ledger.
type fileState struct {
	SeenIDs     []string `json:"seen_ids"`
	LastUpdated string   `json:"last_updated"`
}

// FileLedger keeps the seen set in memory and rewrites a JSON file on every mark.
type FileLedger struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu          sync.RWMutex
	seen        map[string]struct{}
	lastUpdated time.Time
}

// OpenFile loads the ledger at path. A missing file yields an empty ledger and
// no error. Unreadable or corrupt state yields an empty, usable ledger together
// with a *LoadError for the caller to log.
func OpenFile(path string, logger *slog.Logger) (*FileLedger, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &FileLedger{
		path:   path,
		logger: logging.NewComponentLogger(logger, "ledger"),
		now:    time.Now,
		seen:   make(map[string]struct{}),
	}
	if err := l.load(); err != nil {
		l.seen = make(map[string]struct{})
		l.lastUpdated = time.Time{}
		return l, &LoadError{Location: path, Err: err}
	}
	return l, nil
}

func (l *FileLedger) FilterNew(_ context.Context, records []post.Record) ([]post.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return filterUnseen(records, func(i int) bool {
		_, ok := l.seen[records[i].ID]
		return ok
	}), nil
}

func (l *FileLedger) MarkAsSeen(_ context.Context, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := l.seen[id]; !ok {
			l.seen[id] = struct{}{}
			added++
		}
	}
	l.lastUpdated = l.now()

	if err := l.save(); err != nil {
		return &SaveError{Location: l.path, Err: err}
	}
	l.logger.Debug("ledger persisted",
		logging.Int("added", added),
		logging.Int("total", len(l.seen)),
		logging.String("path", l.path))
	return nil
}

func (l *FileLedger) Contains(_ context.Context, id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[strings.TrimSpace(id)]
	return ok, nil
}

func (l *FileLedger) Stats(context.Context) (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		Backend:     "file",
		Location:    l.path,
		Count:       len(l.seen),
		LastUpdated: l.lastUpdated,
	}, nil
}

func (l *FileLedger) Close() error { return nil }

func (l *FileLedger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read ledger file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse ledger file: %w", err)
	}
	for _, id := range state.SeenIDs {
		if id = strings.TrimSpace(id); id != "" {
			l.seen[id] = struct{}{}
		}
	}
	if state.LastUpdated != "" {
		if parsed, err := parseTimestamp(state.LastUpdated); err == nil {
			l.lastUpdated = parsed
		}
	}
	l.logger.Debug("ledger loaded",
		logging.Int("entry_count", len(l.seen)),
		logging.String("path", l.path))
	return nil
}

// save writes the ledger atomically. Caller holds the write lock.
func (l *FileLedger) save() error {
	ids := make([]string, 0, len(l.seen))
	for id := range l.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(fileState{
		SeenIDs:     ids,
		LastUpdated: l.lastUpdated.Format(time.RFC3339Nano),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 and the offset-less ISO 8601 form older
// ledgers were written with.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.Local)
}
