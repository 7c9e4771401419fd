package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reddittrack/internal/archive"
	"reddittrack/internal/classify"
	"reddittrack/internal/collector"
	"reddittrack/internal/config"
	"reddittrack/internal/ledger"
	"reddittrack/internal/logging"
	"reddittrack/internal/notifications"
	"reddittrack/internal/post"
	"reddittrack/internal/reddit"
	"reddittrack/internal/relevance"
	"reddittrack/internal/report"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("tracker: another run is in progress")

// Dependencies are the collaborators a Tracker drives. Archive and Notifier
// may be nil.
type Dependencies struct {
	Source   reddit.Source
	Ledger   ledger.Ledger
	Engine   *classify.Engine
	Archive  *archive.Archive
	Notifier notifications.Service

	Pacer   collector.Pacer
	Sleeper collector.Sleeper
	Rand    *rand.Rand
	Now     func() time.Time
}

// Summary reports what one run did.
type Summary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Fetched      int
	Duplicates   int
	Unique       int
	New          int
	Analyzed     int
	Skipped      int
	HighPriority int
	Negative     int
	Communities  []collector.CommunityStats
	ReportPath   string
	ExportPath   string
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Tracker coordinates a single collection and classification pass.
type Tracker struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
	lock   *flock.Flock
}

// New builds a tracker from explicit dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("tracker: config is required")
	}
	if deps.Source == nil || deps.Ledger == nil || deps.Engine == nil {
		return nil, errors.New("tracker: source, ledger, and classification engine are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Tracker{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "tracker"),
		lock:   flock.New(cfg.LockPath()),
	}, nil
}

// Open wires the production dependencies from config. Unreadable ledger state
// is logged and the run continues with an empty ledger.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Tracker, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	seen, err := ledger.Open(ctx, cfg, logger)
	var loadErr *ledger.LoadError
	switch {
	case errors.As(err, &loadErr):
		logging.WarnWithContext(logger, "ledger state unreadable; starting empty", "ledger_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or delete the ledger at "+loadErr.Location),
			logging.String(logging.FieldImpact, "previously reported posts may be reported again"),
		)
	case err != nil:
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	engine, err := classify.FromConfig(cfg, logger)
	if err != nil {
		_ = seen.Close()
		return nil, err
	}

	store, err := archive.Open(ctx, cfg, logger)
	if err != nil {
		_ = seen.Close()
		return nil, err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return New(cfg, Dependencies{
		Source:   reddit.NewSource(cfg, logger, nil),
		Ledger:   seen,
		Engine:   engine,
		Archive:  store,
		Notifier: notifications.NewService(cfg),
		Pacer:    collector.NewRandomPacer(cfg.Pacing, rng),
		Rand:     rng,
	}, logger)
}

// Archive exposes the archive so callers can query history.
func (t *Tracker) Archive() *archive.Archive { return t.deps.Archive }

// Ledger exposes the seen-post ledger.
func (t *Tracker) Ledger() ledger.Ledger { return t.deps.Ledger }

// Close releases the ledger and archive.
func (t *Tracker) Close() error {
	var errs []error
	if t.deps.Archive != nil {
		errs = append(errs, t.deps.Archive.Close())
	}
	errs = append(errs, t.deps.Ledger.Close())
	return errors.Join(errs...)
}

// Run performs one pass. It always writes a report, empty when nothing new
// was found. Archive, ledger persistence, and notification failures are
// logged and do not fail the run; lock contention, cancellation, and report
// write failures do.
func (t *Tracker) Run(ctx context.Context) (Summary, error) {
	if err := os.MkdirAll(filepath.Dir(t.lock.Path()), 0o755); err != nil {
		return Summary{}, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := t.lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Summary{}, ErrRunInProgress
	}
	defer func() {
		if err := t.lock.Unlock(); err != nil {
			t.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	summary := Summary{RunID: uuid.NewString(), StartedAt: t.deps.Now()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, t.logger)
	logger.Info("run started", logging.Int("communities", len(t.cfg.Collection.Subreddits)))

	err = t.run(ctx, logger, &summary)
	summary.FinishedAt = t.deps.Now()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.notify(ctx, logger, notifications.EventRunFailed, notifications.Payload{"context": "run", "error": err})
		}
		return summary, err
	}

	logger.Info("run completed",
		logging.Int("fetched", summary.Fetched),
		logging.Int("new", summary.New),
		logging.Int("analyzed", summary.Analyzed),
		logging.Int("high_priority", summary.HighPriority),
		logging.String("report", summary.ReportPath),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, nil
}

func (t *Tracker) run(ctx context.Context, logger *slog.Logger, summary *Summary) error {
	opts := collector.OptionsFromConfig(t.cfg)
	if err := opts.Validate(); err != nil {
		return err
	}
	coll := collector.New(t.deps.Source, relevance.New(t.cfg.Collection.Keywords), opts,
		collector.WithPacer(t.deps.Pacer),
		collector.WithSleeper(t.deps.Sleeper),
		collector.WithRand(t.deps.Rand),
		collector.WithLogger(logging.NewComponentLogger(logger, "collector")),
	)
	result, err := coll.Collect(ctx)
	summary.Fetched = result.Fetched
	summary.Duplicates = result.DuplicatesRemoved
	summary.Unique = len(result.Posts)
	summary.Communities = result.Communities
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	fresh, err := t.deps.Ledger.FilterNew(ctx, result.Posts)
	if err != nil {
		logging.WarnWithContext(logger, "ledger lookup failed; treating all posts as new", "ledger_filter_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ledger backend"),
			logging.String(logging.FieldImpact, "already reported posts may appear again"),
		)
		fresh = result.Posts
	}
	summary.New = len(fresh)
	logger.Info("new posts filtered", logging.Int("unique", summary.Unique), logging.Int("new", summary.New))

	analyzed, skipped, err := t.deps.Engine.ClassifyAll(ctx, fresh)
	summary.Skipped = skipped
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	summary.Analyzed = len(analyzed)
	for _, p := range analyzed {
		if p.Priority == post.High {
			summary.HighPriority++
		}
		if p.Sentiment == post.Negative {
			summary.Negative++
		}
	}

	if len(analyzed) > 0 {
		summary.ExportPath = t.archive(ctx, logger, summary.RunID, summary.StartedAt, analyzed)
		t.markSeen(ctx, logger, analyzed)
	}

	path, err := report.WriteFile(t.cfg.Paths.ReportDir, summary.StartedAt, analyzed)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	summary.ReportPath = path

	t.notifyResults(ctx, logger, *summary, analyzed)
	return nil
}

func (t *Tracker) archive(ctx context.Context, logger *slog.Logger, runID string, at time.Time, posts []post.Enriched) string {
	if t.deps.Archive == nil {
		return ""
	}
	path, err := t.deps.Archive.Save(ctx, archive.Batch{RunID: runID, CollectedAt: at, Posts: posts})
	if err != nil {
		logging.WarnWithContext(logger, "archive incomplete", "archive_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions under paths.data_dir"),
			logging.String(logging.FieldImpact, "report still written; history may be missing this run"),
		)
	}
	return path
}

func (t *Tracker) markSeen(ctx context.Context, logger *slog.Logger, posts []post.Enriched) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	if err := t.deps.Ledger.MarkAsSeen(ctx, ids); err != nil {
		logging.WarnWithContext(logger, "ledger not persisted", "ledger_save_failed",
			logging.Error(err),
			logging.Int("posts", len(ids)),
			logging.String(logging.FieldErrorHint, "check the ledger path or redis server"),
			logging.String(logging.FieldImpact, "these posts may be reported again next run"),
		)
	}
}

func (t *Tracker) notifyResults(ctx context.Context, logger *slog.Logger, summary Summary, posts []post.Enriched) {
	t.notify(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
		"new":           summary.Analyzed,
		"high_priority": summary.HighPriority,
		"negative":      summary.Negative,
		"fetched":       summary.Fetched,
		"report_path":   summary.ReportPath,
	})

	limit := t.cfg.Notifications.MaxPostAlerts
	sent := 0
	for _, p := range posts {
		if sent >= limit {
			break
		}
		if p.Priority != post.High {
			continue
		}
		t.notify(ctx, logger, notifications.EventHighPriorityPost, notifications.Payload{
			"title":     p.Title,
			"community": p.Community,
			"sentiment": string(p.Sentiment),
			"url":       p.Permalink,
		})
		sent++
	}
}

func (t *Tracker) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := t.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run results only available in the report"),
		)
	}
}
