package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reddittrack/internal/post"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the history database was written by another
// schema version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// HistoryStore keeps every analyzed post in SQLite for later querying.
type HistoryStore struct {
	db   *sql.DB
	path string
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(ctx context.Context, path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &HistoryStore{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *HistoryStore) Path() string { return s.path }

// Close closes the database.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *HistoryStore) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *HistoryStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const upsertPost = `
INSERT INTO posts (
    id, title, selftext, author, subreddit, created_utc, created_date, score, num_comments,
    url, upvote_ratio, is_self, sentiment, polarity, subjectivity, categories, priority,
    run_id, collected_on, collected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    selftext = excluded.selftext,
    score = excluded.score,
    num_comments = excluded.num_comments,
    upvote_ratio = excluded.upvote_ratio,
    sentiment = excluded.sentiment,
    polarity = excluded.polarity,
    subjectivity = excluded.subjectivity,
    categories = excluded.categories,
    priority = excluded.priority`

// Name identifies the sink in logs.
func (s *HistoryStore) Name() string { return "history" }

// Store upserts the batch in one transaction. A post already present keeps
// its original run and collection time; its scores are refreshed.
func (s *HistoryStore) Store(ctx context.Context, batch Batch) error {
	if len(batch.Posts) == 0 {
		return nil
	}
	collectedAt := batch.CollectedAt.UTC()
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin history tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, upsertPost)
		if err != nil {
			return fmt.Errorf("prepare history upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range batch.Posts {
			categories, err := json.Marshal(p.Categories)
			if err != nil {
				return fmt.Errorf("encode categories for %s: %w", p.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				p.ID, p.Title, p.Body, p.Author, p.Community, p.CreatedUTC, p.CreatedDate,
				p.Score, p.CommentCount, p.Permalink, p.UpvoteRatio, boolToInt(p.IsSelf),
				string(p.Sentiment), p.Polarity, p.Subjectivity, string(categories), string(p.Priority),
				batch.RunID, batch.CollectedAt.Format(DateLayout), collectedAt.Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("upsert post %s: %w", p.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Query filters history listings. Zero values mean "any".
type Query struct {
	Limit     int
	Priority  post.Priority
	Sentiment post.Sentiment
	Community string
	Since     time.Time
}

// Entry is one stored post with its collection metadata.
type Entry struct {
	post.Enriched
	RunID       string
	CollectedOn string
	CollectedAt time.Time
}

// Recent lists stored posts, most recently collected first, then newest post first.
func (s *HistoryStore) Recent(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(q.Priority))
	}
	if q.Sentiment != "" {
		where = append(where, "sentiment = ?")
		args = append(args, string(q.Sentiment))
	}
	if c := strings.TrimSpace(q.Community); c != "" {
		where = append(where, "LOWER(subreddit) = LOWER(?)")
		args = append(args, c)
	}
	if !q.Since.IsZero() {
		where = append(where, "collected_at >= ?")
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}

	query := `SELECT id, title, selftext, author, subreddit, created_utc, created_date, score,
        num_comments, url, upvote_ratio, is_self, sentiment, polarity, subjectivity, categories,
        priority, run_id, collected_on, collected_at FROM posts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY collected_at DESC, created_utc DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			isSelf      int
			sentiment   string
			priority    string
			categories  string
			collectedAt string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Body, &e.Author, &e.Community, &e.CreatedUTC,
			&e.CreatedDate, &e.Score, &e.CommentCount, &e.Permalink, &e.UpvoteRatio, &isSelf,
			&sentiment, &e.Polarity, &e.Subjectivity, &categories, &priority,
			&e.RunID, &e.CollectedOn, &collectedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.IsSelf = isSelf != 0
		e.Sentiment = post.Sentiment(sentiment)
		e.Priority = post.Priority(priority)
		if err := json.Unmarshal([]byte(categories), &e.Categories); err != nil {
			return nil, fmt.Errorf("decode categories for %s: %w", e.ID, err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, collectedAt); err == nil {
			e.CollectedAt = parsed
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Totals aggregates the whole history.
type Totals struct {
	Posts       int
	Runs        int
	ByPriority  map[post.Priority]int
	BySentiment map[post.Sentiment]int
	LastRun     time.Time
}

// Totals counts stored posts by priority and sentiment.
func (s *HistoryStore) Totals(ctx context.Context) (Totals, error) {
	totals := Totals{
		ByPriority:  make(map[post.Priority]int),
		BySentiment: make(map[post.Sentiment]int),
	}
	var last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COUNT(DISTINCT run_id), MAX(collected_at) FROM posts",
	).Scan(&totals.Posts, &totals.Runs, &last); err != nil {
		return totals, fmt.Errorf("count history: %w", err)
	}
	if last.Valid {
		if parsed, err := time.Parse(time.RFC3339Nano, last.String); err == nil {
			totals.LastRun = parsed
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT priority, sentiment, COUNT(1) FROM posts GROUP BY priority, sentiment")
	if err != nil {
		return totals, fmt.Errorf("group history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			priority, sentiment string
			count               int
		)
		if err := rows.Scan(&priority, &sentiment, &count); err != nil {
			return totals, fmt.Errorf("scan history group: %w", err)
		}
		totals.ByPriority[post.Priority(priority)] += count
		totals.BySentiment[post.Sentiment(sentiment)] += count
	}
	return totals, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}
