package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reddittrack/internal/archive"
	"reddittrack/internal/post"
)

func enriched(id string, priority post.Priority, sentiment post.Sentiment, community string, created int64) post.Enriched {
	rec := post.Record{
		ID:           id,
		Title:        "title " + id,
		Body:         "body " + id,
		Author:       "alice",
		Community:    community,
		Score:        10,
		CommentCount: 2,
		Permalink:    "https://reddit.com/r/" + community + "/comments/" + id + "/",
		UpvoteRatio:  0.9,
		IsSelf:       true,
	}
	rec.SetCreated(time.Unix(created, 0))
	return post.Enriched{
		Record:       rec,
		Sentiment:    sentiment,
		Polarity:     -0.4,
		Subjectivity: 0.6,
		Categories:   []string{"Bug/Technical Issue", "Complaint"},
		Priority:     priority,
	}
}

func TestWriteDailyOverwritesSameDay(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.Local)

	first, err := archive.WriteDaily(dir, day, []post.Enriched{enriched("a", post.High, post.Negative, "golang", 100)})
	if err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}
	if filepath.Base(first) != "posts_2026-10-19.json" {
		t.Fatalf("unexpected export name %q", first)
	}

	second, err := archive.WriteDaily(dir, day.Add(3*time.Hour), nil)
	if err != nil {
		t.Fatalf("WriteDaily rerun: %v", err)
	}
	if second != first {
		t.Fatalf("expected same path on rerun, got %q and %q", first, second)
	}
	daily, err := archive.ReadDaily(second)
	if err != nil {
		t.Fatalf("ReadDaily: %v", err)
	}
	if daily.Date != "2026-10-19" || daily.TotalPosts != 0 || daily.Posts == nil {
		t.Fatalf("expected overwritten empty export, got %+v", daily)
	}
}

func TestDailyExportFieldNames(t *testing.T) {
	dir := t.TempDir()
	path, err := archive.WriteDaily(dir, time.Now(), []post.Enriched{enriched("a", post.Low, post.Neutral, "golang", 100)})
	if err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, key := range []string{`"total_posts"`, `"selftext"`, `"subreddit"`, `"num_comments"`, `"created_utc"`, `"priority"`, `"categories"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("export missing key %s", key)
		}
	}
}

func openHistory(t *testing.T) *archive.HistoryStore {
	t.Helper()
	store, err := archive.OpenHistory(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openHistory(t)
	collected := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	batch := archive.Batch{RunID: "run-1", CollectedAt: collected, Posts: []post.Enriched{
		enriched("a", post.High, post.Negative, "golang", 200),
		enriched("b", post.Low, post.Neutral, "rust", 100),
	}}
	if err := store.Store(ctx, batch); err != nil {
		t.Fatalf("Store: %v", err)
	}

	updated := enriched("a", post.Medium, post.Negative, "golang", 200)
	updated.Score = 99
	if err := store.Store(ctx, archive.Batch{RunID: "run-2", CollectedAt: collected.Add(time.Hour), Posts: []post.Enriched{updated}}); err != nil {
		t.Fatalf("Store again: %v", err)
	}

	entries, err := store.Recent(ctx, archive.Query{})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 rows after upsert, got %d", len(entries))
	}
	var a archive.Entry
	for _, e := range entries {
		if e.ID == "a" {
			a = e
		}
	}
	if a.Score != 99 || a.Priority != post.Medium || a.RunID != "run-1" {
		t.Fatalf("unexpected upserted row: %+v", a)
	}
	if len(a.Categories) != 2 || !a.IsSelf || a.CollectedOn != "2026-10-19" || !a.CollectedAt.Equal(collected) {
		t.Fatalf("unexpected decoded row: %+v", a)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Posts != 2 || totals.Runs != 1 || totals.ByPriority[post.Medium] != 1 || totals.BySentiment[post.Negative] != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestHistoryRecentFilters(t *testing.T) {
	ctx := context.Background()
	store := openHistory(t)
	collected := time.Now()
	if err := store.Store(ctx, archive.Batch{RunID: "r", CollectedAt: collected, Posts: []post.Enriched{
		enriched("old", post.High, post.Negative, "golang", 100),
		enriched("new", post.High, post.Positive, "golang", 300),
		enriched("other", post.Low, post.Negative, "Rust", 200),
	}}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	high, err := store.Recent(ctx, archive.Query{Priority: post.High})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(high) != 2 || high[0].ID != "new" || high[1].ID != "old" {
		t.Fatalf("expected high posts newest first, got %+v", high)
	}

	rust, _ := store.Recent(ctx, archive.Query{Community: "rust", Sentiment: post.Negative})
	if len(rust) != 1 || rust[0].ID != "other" {
		t.Fatalf("unexpected community filter result: %+v", rust)
	}

	limited, _ := store.Recent(ctx, archive.Query{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit 1, got %d", len(limited))
	}

	future, _ := store.Recent(ctx, archive.Query{Since: collected.Add(time.Hour)})
	if len(future) != 0 {
		t.Fatalf("expected no rows after since, got %d", len(future))
	}
}

func TestHistoryReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := archive.OpenHistory(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	_ = store.Close()
	store, err = archive.OpenHistory(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = store.Close()
}

type failingSink struct{ closed bool }

func (f *failingSink) Name() string { return "failing" }
func (f *failingSink) Store(context.Context, archive.Batch) error {
	return errors.New("disk full")
}
func (f *failingSink) Close() error { f.closed = true; return nil }

func TestArchiveSaveContinuesPastSinkFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	history := openHistory(t)
	bad := &failingSink{}
	a := archive.New(dir, nil, bad, history)

	batch := archive.Batch{RunID: "r", CollectedAt: time.Now(), Posts: []post.Enriched{enriched("a", post.Low, post.Neutral, "golang", 1)}}
	path, err := a.Save(ctx, batch)
	if err == nil {
		t.Fatal("expected joined sink error")
	}
	if path == "" {
		t.Fatal("expected export path despite sink failure")
	}
	if a.History() != history {
		t.Fatal("expected history store to be exposed")
	}
	entries, _ := history.Recent(ctx, archive.Query{})
	if len(entries) != 1 {
		t.Fatalf("expected later sink to run, got %d rows", len(entries))
	}
	if err := a.Close(); err != nil || !bad.closed {
		t.Fatalf("Close: err=%v closed=%v", err, bad.closed)
	}
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("REDDITTRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REDDITTRACK_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	sink, err := archive.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer sink.Close()
	batch := archive.Batch{RunID: "pg", CollectedAt: time.Now(), Posts: []post.Enriched{enriched("pg-"+time.Now().Format("150405.000"), post.Low, post.Neutral, "golang", 1)}}
	for i := 0; i < 2; i++ {
		if err := sink.Store(ctx, batch); err != nil {
			t.Fatalf("Store attempt %d: %v", i+1, err)
		}
	}
}
