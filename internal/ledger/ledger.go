package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reddittrack/internal/config"
	"reddittrack/internal/post"
)

// Ledger is the persistent set of post IDs that have already been processed.
// Implementations are safe for concurrent use.
type Ledger interface {
	// FilterNew returns the records whose IDs are not yet in the ledger, in
	// input order. It does not modify the ledger.
	FilterNew(ctx context.Context, records []post.Record) ([]post.Record, error)
	// MarkAsSeen adds ids and persists the ledger. On a *SaveError the ids
	// remain marked for the lifetime of the process.
	MarkAsSeen(ctx context.Context, ids []string) error
	Contains(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats summarizes ledger contents.
type Stats struct {
	Backend     string
	Location    string
	Count       int
	LastUpdated time.Time
}

// LoadError reports ledger state that could not be read. The ledger that
// accompanies it is empty but usable.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("ledger: load %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports that newly marked IDs could not be persisted.
type SaveError struct {
	Location string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("ledger: save %s: %v", e.Location, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Open returns the backend selected by ledger.backend. As with OpenFile, a
// *LoadError may accompany a usable ledger; any other error means no ledger.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		l, err := OpenRedis(ctx, RedisOptions{
			Addr:     cfg.Ledger.RedisAddr,
			Password: cfg.Ledger.RedisPassword,
			DB:       cfg.Ledger.RedisDB,
			Key:      cfg.Ledger.RedisKey,
		}, logger)
		if l == nil {
			return nil, err
		}
		return l, err
	case config.LedgerBackendFile, "":
		l, err := OpenFile(cfg.LedgerPath(), logger)
		if l == nil {
			return nil, err
		}
		return l, err
	default:
		return nil, fmt.Errorf("ledger: unsupported backend %q", cfg.Ledger.Backend)
	}
}

// filterUnseen keeps records for which seen reports false.
func filterUnseen(records []post.Record, seen func(i int) bool) []post.Record {
	fresh := make([]post.Record, 0, len(records))
	for i, rec := range records {
		if !seen(i) {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}
