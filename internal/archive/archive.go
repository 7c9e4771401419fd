package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reddittrack/internal/config"
	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

// Batch is the output of one run handed to the archive.
type Batch struct {
	RunID       string
	CollectedAt time.Time
	Posts       []post.Enriched
}

// Sink persists batches somewhere beyond the daily export.
type Sink interface {
	Name() string
	Store(ctx context.Context, batch Batch) error
	Close() error
}

// Archive writes the daily export and fans batches out to the configured sinks.
type Archive struct {
	dataDir string
	history *HistoryStore
	sinks   []Sink
	logger  *slog.Logger
}

// New builds an archive over dataDir with explicit sinks.
func New(dataDir string, logger *slog.Logger, sinks ...Sink) *Archive {
	a := &Archive{dataDir: dataDir, logger: logging.NewComponentLogger(logger, "archive")}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if h, ok := sink.(*HistoryStore); ok {
			a.history = h
		}
		a.sinks = append(a.sinks, sink)
	}
	return a
}

// Open builds the archive from config. A Postgres sink that cannot be reached
// is logged and left out so the rest of the archive keeps working.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Archive, error) {
	var sinks []Sink
	if cfg.Archive.HistoryEnabled {
		history, err := OpenHistory(ctx, cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		sinks = append(sinks, history)
	}
	a := New(cfg.Paths.DataDir, logger, sinks...)

	if dsn := cfg.Archive.PostgresDSN; dsn != "" {
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			logging.WarnWithContext(a.logger, "postgres sink unavailable", "postgres_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check archive.postgres_dsn and that the server is reachable"),
				logging.String(logging.FieldImpact, "posts are not mirrored to postgres this run"),
			)
		} else {
			a.sinks = append(a.sinks, pg)
		}
	}
	return a, nil
}

// History returns the SQLite history store, or nil when history is disabled.
func (a *Archive) History() *HistoryStore { return a.history }

// Save writes the daily export and then every sink. Sink failures do not stop
// later sinks; all failures are joined into the returned error. The export
// path is returned whenever the export itself succeeded.
func (a *Archive) Save(ctx context.Context, batch Batch) (string, error) {
	var errs []error
	path, err := WriteDaily(a.dataDir, batch.CollectedAt, batch.Posts)
	if err != nil {
		errs = append(errs, err)
	} else {
		a.logger.Info("daily export written",
			logging.String("path", path),
			logging.Int("posts", len(batch.Posts)))
	}

	for _, sink := range a.sinks {
		if err := sink.Store(ctx, batch); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", sink.Name(), err))
			continue
		}
		a.logger.Debug("batch archived",
			logging.String("sink", sink.Name()),
			logging.Int("posts", len(batch.Posts)))
	}
	return path, errors.Join(errs...)
}

// Close closes every sink.
func (a *Archive) Close() error {
	var errs []error
	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
