package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reddittrack/internal/logging"
)

// Job is the work performed at each scheduled time.
type Job func(ctx context.Context) error

// Daily fires once per day at a wall-clock time in Location.
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next returns the first occurrence strictly after t.
func (d Daily) Next(t time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler runs a job on a daily schedule.
type Scheduler struct {
	schedule   Daily
	job        Job
	clock      Clock
	logger     *slog.Logger
	runOnStart bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunOnStart makes Loop run the job once before waiting for the first
// scheduled time.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// New constructs a Scheduler.
func New(schedule Daily, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		schedule: schedule,
		job:      job,
		clock:    realClock{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunNow runs the job once immediately. Job failures are logged, not returned;
// the error is non-nil only when ctx is done.
func (s *Scheduler) RunNow(ctx context.Context) error {
	started := s.clock.Now()
	err := s.job(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		logging.ErrorWithContext(s.logger, "scheduled run failed", "scheduled_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "see the run log above for the failing step"),
			logging.String(logging.FieldImpact, "next attempt at the following scheduled time"),
		)
		return nil
	}
	s.logger.Info("scheduled run finished", logging.Duration("duration", s.clock.Now().Sub(started)))
	return nil
}

// Loop runs the job at every scheduled time until ctx is cancelled. It returns
// nil on cancellation.
func (s *Scheduler) Loop(ctx context.Context) error {
	if s.job == nil {
		return errors.New("scheduler: job is required")
	}
	if s.runOnStart {
		if err := s.RunNow(ctx); err != nil {
			return nil
		}
	}
	for {
		now := s.clock.Now()
		next := s.schedule.Next(now)
		s.logger.Info("next run scheduled",
			logging.String("at", next.Format(time.RFC3339)),
			logging.Duration("wait", next.Sub(now)),
		)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil
		case <-s.clock.After(next.Sub(now)):
		}
		if err := s.RunNow(ctx); err != nil {
			s.logger.Info("scheduler stopping")
			return nil
		}
	}
}
