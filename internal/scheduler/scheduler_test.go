package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestDailyNext(t *testing.T) {
	loc := time.UTC
	d := Daily{Hour: 8, Minute: 0, Location: loc}
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before today", time.Date(2026, 10, 19, 6, 30, 0, 0, loc), time.Date(2026, 10, 19, 8, 0, 0, 0, loc)},
		{"exactly at", time.Date(2026, 10, 19, 8, 0, 0, 0, loc), time.Date(2026, 10, 20, 8, 0, 0, 0, loc)},
		{"after today", time.Date(2026, 10, 19, 21, 0, 0, 0, loc), time.Date(2026, 10, 20, 8, 0, 0, 0, loc)},
		{"month end", time.Date(2026, 10, 31, 9, 0, 0, 0, loc), time.Date(2026, 11, 1, 8, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Next(tt.now); !got.Equal(tt.want) {
				t.Fatalf("Next(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestLoopRunsAtScheduleAndSurvivesFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs []time.Time
	job := func(context.Context) error {
		runs = append(runs, clock.now)
		if len(runs) == 3 {
			cancel()
			return nil
		}
		return errors.New("transient")
	}
	s := New(Daily{Hour: 8, Location: time.UTC}, job, WithClock(clock))
	if err := s.Loop(ctx); err != nil {
		t.Fatalf("Loop returned error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if clock.waits[0] != time.Hour || clock.waits[1] != 24*time.Hour {
		t.Fatalf("unexpected waits: %v", clock.waits)
	}
	if !runs[2].Equal(time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected third run time: %v", runs[2])
	}
}

func TestLoopRunOnStart(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs []time.Time
	job := func(context.Context) error {
		runs = append(runs, clock.now)
		if len(runs) == 2 {
			cancel()
		}
		return nil
	}
	s := New(Daily{Hour: 8, Location: time.UTC}, job, WithClock(clock), WithRunOnStart(true))
	if err := s.Loop(ctx); err != nil {
		t.Fatalf("Loop returned error: %v", err)
	}
	if len(runs) != 2 || !runs[0].Equal(time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected an immediate run first, got %v", runs)
	}
}

func TestLoopStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(Daily{Hour: 8}, func(context.Context) error {
		t.Fatal("job must not run")
		return nil
	})
	if err := s.Loop(ctx); err != nil {
		t.Fatalf("Loop returned error: %v", err)
	}
}
