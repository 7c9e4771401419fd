package testsupport

import (
	"context"
	"testing"

	"reddittrack/internal/archive"
	"reddittrack/internal/config"
)

// MustOpenHistory opens the SQLite history store for tests and registers
// cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *archive.HistoryStore {
	t.Helper()

	store, err := archive.OpenHistory(context.Background(), cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("archive.OpenHistory: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
