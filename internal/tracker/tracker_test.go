package tracker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"reddittrack/internal/archive"
	"reddittrack/internal/classify"
	"reddittrack/internal/collector"
	"reddittrack/internal/config"
	"reddittrack/internal/ledger"
	"reddittrack/internal/logging"
	"reddittrack/internal/notifications"
	"reddittrack/internal/post"
	"reddittrack/internal/reddit"
	"reddittrack/internal/testsupport"
	"reddittrack/internal/tracker"
)

type stubSource struct {
	records []post.Record
}

func (s *stubSource) FetchListing(_ context.Context, community string, _ reddit.Strategy, _ int) ([]post.Record, error) {
	var out []post.Record
	for _, rec := range s.records {
		if rec.Community == community {
			out = append(out, rec)
		}
	}
	return out, nil
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	events []published
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.events = append(r.events, published{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func polarityScorer(failIDs ...string) classify.Scorer {
	return classify.ScorerFunc(func(_ context.Context, text string) (classify.Scores, error) {
		for _, id := range failIDs {
			if strings.Contains(text, id) {
				return classify.Scores{}, errors.New("scorer unavailable")
			}
		}
		if strings.Contains(text, "broken") {
			return classify.Scores{Polarity: -0.5, Subjectivity: 0.6}, nil
		}
		return classify.Scores{Polarity: 0.2, Subjectivity: 0.3}, nil
	})
}

type harness struct {
	cfg      *config.Config
	tracker  *tracker.Tracker
	ledger   *ledger.FileLedger
	notifier *recordingNotifier
}

func newHarness(t *testing.T, cfg *config.Config, records []post.Record, scorer classify.Scorer) *harness {
	t.Helper()
	notifier := &recordingNotifier{}
	h := newHarnessWith(t, cfg, records, scorer, archive.New(cfg.Paths.DataDir, logging.NewNop()), notifier)
	h.notifier = notifier
	return h
}

func newHarnessWith(t *testing.T, cfg *config.Config, records []post.Record, scorer classify.Scorer, arch *archive.Archive, notifier notifications.Service) *harness {
	t.Helper()
	logger := logging.NewNop()
	seen, err := ledger.OpenFile(cfg.LedgerPath(), logger)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	tr, err := tracker.New(cfg, tracker.Dependencies{
		Source:   &stubSource{records: records},
		Ledger:   seen,
		Engine:   classify.New(scorer, classify.NewTaxonomy(cfg.Classification.Categories)),
		Archive:  arch,
		Notifier: notifier,
		Pacer:    collector.NoPacing,
		Now:      func() time.Time { return fixedNow },
	}, logger)
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return &harness{cfg: cfg, tracker: tr, ledger: seen}
}

func sampleRecords() []post.Record {
	return []post.Record{
		testsupport.Engaged(testsupport.Record("a1", "techsupport", "Printer broken again", "it is broken", fixedNow.Add(-time.Hour)), 80, 5),
		testsupport.Record("b2", "techsupport", "Small issue with login", "", fixedNow.Add(-2*time.Hour)),
		testsupport.Record("c3", "techsupport", "Show your desk setup", "", fixedNow.Add(-3*time.Hour)),
	}
}

func TestRunProcessesNewPostsAndMarksThemSeen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, sampleRecords(), polarityScorer())

	summary, err := h.tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if summary.Unique != 2 || summary.New != 2 || summary.Analyzed != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	// Both strategies return the same listing, so every relevant post appears twice.
	if summary.Fetched != 4 || summary.Duplicates != 2 {
		t.Fatalf("unexpected fetch counts: fetched=%d duplicates=%d", summary.Fetched, summary.Duplicates)
	}
	if summary.HighPriority != 1 || summary.Negative != 1 {
		t.Fatalf("expected one high priority negative post, got %+v", summary)
	}

	if _, err := os.Stat(summary.ReportPath); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	daily, err := archive.ReadDaily(summary.ExportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if daily.TotalPosts != 2 {
		t.Fatalf("expected 2 exported posts, got %d", daily.TotalPosts)
	}

	for _, id := range []string{"a1", "b2"} {
		ok, err := h.ledger.Contains(context.Background(), id)
		if err != nil || !ok {
			t.Fatalf("expected %s marked seen (ok=%v err=%v)", id, ok, err)
		}
	}
	if ok, _ := h.ledger.Contains(context.Background(), "c3"); ok {
		t.Fatal("irrelevant post must not be marked seen")
	}

	if got := h.notifier.count(notifications.EventRunCompleted); got != 1 {
		t.Fatalf("expected one run summary, got %d", got)
	}
	if got := h.notifier.count(notifications.EventHighPriorityPost); got != 1 {
		t.Fatalf("expected one high priority alert, got %d", got)
	}
}

func TestRunSecondPassFindsNothingNew(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, sampleRecords(), polarityScorer())

	if _, err := h.tracker.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := h.tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.New != 0 || summary.Analyzed != 0 {
		t.Fatalf("expected nothing new, got %+v", summary)
	}
	if summary.ExportPath != "" {
		t.Fatalf("no export expected for an empty run, got %q", summary.ExportPath)
	}
	data, err := os.ReadFile(summary.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "No new posts found") {
		t.Fatal("expected empty report placeholder")
	}
}

func TestRunLeavesFailedClassificationsUnseen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, sampleRecords(), polarityScorer("login"))

	summary, err := h.tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Analyzed != 1 || summary.Skipped != 1 {
		t.Fatalf("expected one analyzed and one skipped, got %+v", summary)
	}
	if ok, _ := h.ledger.Contains(context.Background(), "b2"); ok {
		t.Fatal("post that failed classification must stay unseen")
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness(t, cfg, sampleRecords(), polarityScorer())

	if err := os.MkdirAll(filepath.Dir(cfg.LockPath()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := h.tracker.Run(context.Background()); !errors.Is(err, tracker.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunFailsWithoutCommunities(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSubreddits())
	h := newHarness(t, cfg, nil, polarityScorer())

	if _, err := h.tracker.Run(context.Background()); !errors.Is(err, collector.ErrNoCommunities) {
		t.Fatalf("expected ErrNoCommunities, got %v", err)
	}
	if got := h.notifier.count(notifications.EventRunFailed); got != 1 {
		t.Fatalf("expected a failure notification, got %d", got)
	}
}

func TestRunReportFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg.Paths.ReportDir = blocker
	h := newHarness(t, cfg, sampleRecords(), polarityScorer())

	if _, err := h.tracker.Run(context.Background()); err == nil {
		t.Fatal("expected report write failure")
	}
	if got := h.notifier.count(notifications.EventRunFailed); got != 1 {
		t.Fatalf("expected a failure notification, got %d", got)
	}
	if got := h.notifier.count(notifications.EventRunCompleted); got != 0 {
		t.Fatalf("no summary expected on failure, got %d", got)
	}
}

func TestRunArchivesToHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithKeywords("broken"))
	arch, err := archive.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	h := newHarnessWith(t, cfg, sampleRecords(), polarityScorer(), arch, nil)

	summary, err := h.tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.New != 1 {
		t.Fatalf("expected only the keyword match to be new, got %+v", summary)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	totals, err := store.Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Posts != 1 || totals.Runs != 1 {
		t.Fatalf("unexpected history totals: %+v", totals)
	}
	entries, err := store.Recent(context.Background(), archive.Query{Limit: 5})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a1" || entries[0].RunID != summary.RunID {
		t.Fatalf("unexpected history entries: %+v", entries)
	}
}

func TestArchiveOpenWithoutHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	arch, err := archive.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	defer arch.Close()
	if arch.History() != nil {
		t.Fatal("history store must not be opened when disabled")
	}
	if _, err := os.Stat(cfg.HistoryDBPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no history database, stat err=%v", err)
	}
}

func TestRunPublishesToNtfy(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(srv.URL+"/reddittrack"))
	h := newHarnessWith(t, cfg, sampleRecords(), polarityScorer(),
		archive.New(cfg.Paths.DataDir, logging.NewNop()), notifications.NewService(cfg))

	if _, err := h.tracker.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// One run summary plus one alert for the single high priority post.
	if len(titles) != 2 {
		t.Fatalf("expected 2 ntfy requests, got %d (%v)", len(titles), titles)
	}
	if titles[0] != "reddittrack - Run Complete" {
		t.Fatalf("expected the run summary first, got %q", titles[0])
	}
}
