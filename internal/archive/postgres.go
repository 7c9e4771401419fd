package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reddittrack_posts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    selftext TEXT NOT NULL,
    author TEXT NOT NULL,
    subreddit TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    score INTEGER NOT NULL,
    num_comments INTEGER NOT NULL,
    url TEXT NOT NULL,
    upvote_ratio DOUBLE PRECISION NOT NULL,
    is_self BOOLEAN NOT NULL,
    sentiment TEXT NOT NULL,
    polarity DOUBLE PRECISION NOT NULL,
    subjectivity DOUBLE PRECISION NOT NULL,
    categories TEXT[] NOT NULL,
    priority TEXT NOT NULL,
    run_id TEXT NOT NULL,
    collected_at TIMESTAMPTZ NOT NULL
)`

const insertPostgres = `
INSERT INTO reddittrack_posts (
    id, title, selftext, author, subreddit, created_at, score, num_comments, url,
    upvote_ratio, is_self, sentiment, polarity, subjectivity, categories, priority,
    run_id, collected_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (id) DO NOTHING`

// PostgresSink mirrors analyzed posts into a shared Postgres table.
type PostgresSink struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq and creates the table when missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create postgres table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Store inserts the batch; posts already present are left untouched.
func (s *PostgresSink) Store(ctx context.Context, batch Batch) error {
	if len(batch.Posts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin postgres tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertPostgres)
	if err != nil {
		return fmt.Errorf("prepare postgres insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range batch.Posts {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.Body, p.Author, p.Community, p.CreatedAt(), p.Score, p.CommentCount,
			p.Permalink, p.UpvoteRatio, p.IsSelf, string(p.Sentiment), p.Polarity, p.Subjectivity,
			pq.Array(p.Categories), string(p.Priority), batch.RunID, batch.CollectedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert post %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit postgres tx: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
