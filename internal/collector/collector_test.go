package collector_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"reddittrack/internal/collector"
	"reddittrack/internal/config"
	"reddittrack/internal/post"
	"reddittrack/internal/reddit"
	"reddittrack/internal/relevance"
)

type fetchCall struct {
	community string
	strategy  reddit.Strategy
	limit     int
}

type fakeSource struct {
	mu       sync.Mutex
	listings map[string][]post.Record
	// fail returns an error for the nth call (1-based) against a community.
	fail  map[string]map[int]error
	calls []fetchCall
	count map[string]int
}

func (f *fakeSource) FetchListing(_ context.Context, community string, strategy reddit.Strategy, limit int) ([]post.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count == nil {
		f.count = map[string]int{}
	}
	f.count[community]++
	f.calls = append(f.calls, fetchCall{community, strategy, limit})
	if err := f.fail[community][f.count[community]]; err != nil {
		return nil, err
	}
	return f.listings[community], nil
}

func recordIDs(records []post.Record) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

func record(id, community, title string, created int64) post.Record {
	rec := post.Record{ID: id, Community: community, Title: title}
	rec.SetCreated(time.Unix(created, 0))
	return rec
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

func baseOptions(communities ...string) collector.Options {
	return collector.Options{
		Communities: communities,
		BaseLimit:   90,
		MinLimit:    20,
		MaxLimit:    150,
		ScrollEvery: 10,
		Cooldown:    60 * time.Second,
	}
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }

func TestCollectDedupsFiltersAndSortsNewestFirst(t *testing.T) {
	source := &fakeSource{listings: map[string][]post.Record{
		"a": {
			record("p1", "a", "app crash on start", 100),
			record("p2", "a", "lovely weather", 500),
			record("shared", "a", "bug in sync", 300),
		},
		"b": {
			record("shared", "b", "bug in sync", 300),
			record("p3", "b", "refund problem", 400),
		},
	}}
	c := collector.New(source, relevance.New([]string{"crash", "bug", "problem"}), baseOptions("a", "b"),
		collector.WithRand(seeded()))

	result, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	ids := recordIDs(result.Posts)
	want := []string{"p3", "shared", "p1"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("unexpected merged ids: got %v want %v", ids, want)
	}
	for i := 1; i < len(result.Posts); i++ {
		if result.Posts[i].CreatedUTC > result.Posts[i-1].CreatedUTC {
			t.Fatalf("output not newest first at %d: %v", i, ids)
		}
	}
	// Each community is fetched twice and every listing repeats, so "shared" is
	// seen four times and every other relevant post twice.
	if result.Fetched != 8 || result.DuplicatesRemoved != 5 {
		t.Fatalf("unexpected counts: fetched=%d dups=%d", result.Fetched, result.DuplicatesRemoved)
	}
	if len(result.Communities) != 2 {
		t.Fatalf("expected stats for both communities, got %d", len(result.Communities))
	}
}

func TestMergeFirstOccurrenceWins(t *testing.T) {
	first := record("x", "a", "from a", 10)
	second := record("x", "b", "from b", 10)
	merged := collector.Merge([]post.Record{first, second, record("y", "b", "older", 5)})
	if len(merged) != 2 || merged[0].Community != "a" || merged[1].ID != "y" {
		t.Fatalf("unexpected merge: %+v", merged)
	}
}

func TestCollectUsesDistinctStrategiesAndThirdOfBudget(t *testing.T) {
	source := &fakeSource{}
	opts := baseOptions("a", "b", "c")
	opts.BaseLimit = 300
	c := collector.New(source, relevance.New([]string{"x"}), opts, collector.WithRand(seeded()))

	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(source.calls) != 6 {
		t.Fatalf("expected two fetches per community, got %d", len(source.calls))
	}
	for i := 0; i < len(source.calls); i += 2 {
		primary, secondary := source.calls[i], source.calls[i+1]
		if primary.community != secondary.community {
			t.Fatalf("strategies for one community must be fetched back to back: %+v", source.calls)
		}
		if primary.strategy == secondary.strategy {
			t.Fatalf("primary and secondary strategies must differ: %+v", source.calls)
		}
		if primary.limit != 50 || secondary.limit != 50 {
			t.Fatalf("expected clamped budget 150 split into 50s, got %d/%d", primary.limit, secondary.limit)
		}
	}
}

func TestClampBudget(t *testing.T) {
	cases := []struct{ limit, want int }{{5, 20}, {20, 20}, {100, 100}, {150, 150}, {400, 150}}
	for _, tc := range cases {
		if got := collector.ClampBudget(tc.limit, 20, 150); got != tc.want {
			t.Fatalf("ClampBudget(%d) = %d want %d", tc.limit, got, tc.want)
		}
	}
}

func TestCollectJitteredBudgetStaysInBounds(t *testing.T) {
	source := &fakeSource{}
	opts := baseOptions("a")
	opts.BaseLimit = 25
	opts.LimitJitter = 10
	for seed := uint64(0); seed < 50; seed++ {
		source.calls = nil
		c := collector.New(source, relevance.New(nil), opts, collector.WithRand(rand.New(rand.NewPCG(seed, seed))))
		result, err := c.Collect(context.Background())
		if err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
		budget := result.Communities[0].Budget
		if budget < 20 || budget > 35 {
			t.Fatalf("seed %d: budget %d outside [20, 35]", seed, budget)
		}
	}
}

func TestCollectRateLimitTriggersSingleCooldown(t *testing.T) {
	source := &fakeSource{
		listings: map[string][]post.Record{"b": {record("ok", "b", "bug", 1)}},
		fail:     map[string]map[int]error{"a": {1: &reddit.RateLimitError{Community: "a"}}},
	}
	sleeps := &sleepLog{}
	c := collector.New(source, relevance.New([]string{"bug"}), baseOptions("a", "b"),
		collector.WithRand(seeded()), collector.WithSleeper(sleeps.sleep))

	result, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if n := sleeps.count(60 * time.Second); n != 1 {
		t.Fatalf("expected exactly one 60s cool-down, got %d (%v)", n, sleeps.delays)
	}
	if len(sleeps.delays) != 1 {
		t.Fatalf("NoPacing should add no other sleeps, got %v", sleeps.delays)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != "ok" {
		t.Fatalf("expected other community to still be collected: %+v", result.Posts)
	}
	var limited *collector.CommunityStats
	for i := range result.Communities {
		if result.Communities[i].Community == "a" {
			limited = &result.Communities[i]
		}
	}
	if limited == nil || !limited.RateLimited || limited.Err == nil {
		t.Fatalf("expected rate-limited stats for a: %+v", result.Communities)
	}
	if source.count["a"] != 1 {
		t.Fatalf("community a should be skipped after primary failure, got %d fetches", source.count["a"])
	}
}

func TestCollectSecondaryFailureKeepsPrimary(t *testing.T) {
	source := &fakeSource{
		listings: map[string][]post.Record{"a": {record("p1", "a", "bug", 1)}},
		fail:     map[string]map[int]error{"a": {2: errors.New("connection reset")}},
	}
	sleeps := &sleepLog{}
	c := collector.New(source, relevance.New([]string{"bug"}), baseOptions("a"),
		collector.WithSleeper(sleeps.sleep))

	result, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(result.Posts) != 1 || result.Posts[0].ID != "p1" {
		t.Fatalf("expected primary results kept, got %+v", result.Posts)
	}
	if result.Communities[0].Err == nil || result.Communities[0].RateLimited {
		t.Fatalf("unexpected stats: %+v", result.Communities[0])
	}
	if len(sleeps.delays) != 0 {
		t.Fatalf("non rate-limit errors must not cool down: %v", sleeps.delays)
	}
}

func TestCollectPacing(t *testing.T) {
	listing := make([]post.Record, 25)
	for i := range listing {
		listing[i] = record(fmt.Sprintf("id%d", i), "a", "bug", int64(i))
	}
	source := &fakeSource{listings: map[string][]post.Record{"a": listing, "b": listing, "c": listing}}
	pacer := collector.PacerFunc(func(reason collector.Reason) time.Duration {
		switch reason {
		case collector.BetweenCommunities:
			return 3 * time.Second
		case collector.BetweenStrategies:
			return time.Second
		default:
			return 500 * time.Millisecond
		}
	})
	sleeps := &sleepLog{}
	c := collector.New(source, relevance.New([]string{"bug"}), baseOptions("a", "b", "c"),
		collector.WithPacer(pacer), collector.WithSleeper(sleeps.sleep), collector.WithRand(seeded()))

	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if n := sleeps.count(3 * time.Second); n != 2 {
		t.Fatalf("expected 2 pauses between 3 communities (none after the last), got %d", n)
	}
	if n := sleeps.count(time.Second); n != 3 {
		t.Fatalf("expected one strategy pause per community, got %d", n)
	}
	// 25 items pause at index 10 and 20; two listings per community.
	if n := sleeps.count(500 * time.Millisecond); n != 12 {
		t.Fatalf("expected 12 reading pauses, got %d", n)
	}
}

func TestCollectStopsOnCancellation(t *testing.T) {
	source := &fakeSource{listings: map[string][]post.Record{"a": {record("p1", "a", "bug", 1)}}}
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	pacer := collector.PacerFunc(func(collector.Reason) time.Duration { return time.Second })
	c := collector.New(source, relevance.New([]string{"bug"}), baseOptions("a"),
		collector.WithPacer(pacer), collector.WithSleeper(sleeper))

	result, err := c.Collect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(source.calls) != 1 {
		t.Fatalf("expected collection to stop after first pause, got %d calls", len(source.calls))
	}
	if len(result.Posts) != 1 {
		t.Fatalf("expected partial result, got %+v", result.Posts)
	}
}

func TestCancelMidListingKeepsStatsConsistent(t *testing.T) {
	listing := make([]post.Record, 15)
	for i := range listing {
		title := "bug report"
		if i == 3 {
			title = "lovely weather"
		}
		listing[i] = record(fmt.Sprintf("id%d", i), "a", title, int64(i))
	}
	source := &fakeSource{listings: map[string][]post.Record{"a": listing}}
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	pacer := collector.PacerFunc(func(reason collector.Reason) time.Duration {
		if reason == collector.WhileReading {
			return time.Second
		}
		return 0
	})
	c := collector.New(source, relevance.New([]string{"bug"}), baseOptions("a"),
		collector.WithPacer(pacer), collector.WithSleeper(sleeper))

	result, err := c.Collect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	stats := result.Communities[0]
	// The first reading pause comes after index 10: eleven scanned, ten relevant.
	if stats.Scanned != 11 || stats.Relevant != 10 {
		t.Fatalf("unexpected stats after cancellation: %+v", stats)
	}
	if len(result.Posts) != stats.Relevant {
		t.Fatalf("relevant count %d disagrees with %d partial posts", stats.Relevant, len(result.Posts))
	}
}

func TestRandomPacerRanges(t *testing.T) {
	pacer := collector.NewRandomPacer(configPacing(), rand.New(rand.NewPCG(1, 1)))
	for i := 0; i < 100; i++ {
		if d := pacer.Pause(collector.BetweenCommunities); d < 3*time.Second || d > 8*time.Second {
			t.Fatalf("community pause %v outside [3s, 8s]", d)
		}
		if d := pacer.Pause(collector.WhileReading); d < 500*time.Millisecond || d > 2*time.Second {
			t.Fatalf("reading pause %v outside [0.5s, 2s]", d)
		}
	}
	disabled := configPacing()
	disabled.Enabled = false
	if collector.NewRandomPacer(disabled, nil).Pause(collector.BetweenStrategies) != 0 {
		t.Fatal("disabled pacing must not pause")
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (collector.Options{Communities: []string{" "}}).Validate(); !errors.Is(err, collector.ErrNoCommunities) {
		t.Fatalf("expected ErrNoCommunities, got %v", err)
	}
	if err := baseOptions("a").Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func configPacing() config.Pacing {
	return config.Default().Pacing
}
