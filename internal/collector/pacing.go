package collector

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"reddittrack/internal/config"
)

// Reason names the point in a run where a pause happens.
type Reason string

const (
	BetweenStrategies  Reason = "between_strategies"
	WhileReading       Reason = "while_reading"
	BetweenCommunities Reason = "between_communities"
)

// Pacer decides how long to pause at each point of a run.
type Pacer interface {
	Pause(reason Reason) time.Duration
}

// PacerFunc adapts a function to Pacer.
type PacerFunc func(reason Reason) time.Duration

func (f PacerFunc) Pause(reason Reason) time.Duration { return f(reason) }

// NoPacing never pauses.
var NoPacing Pacer = PacerFunc(func(Reason) time.Duration { return 0 })

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomPacer draws each pause uniformly from the configured range.
type RandomPacer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	ranges map[Reason][2]float64
}

// NewRandomPacer builds a pacer from the [pacing] config section. A disabled
// section yields NoPacing.
func NewRandomPacer(cfg config.Pacing, rng *rand.Rand) Pacer {
	if !cfg.Enabled {
		return NoPacing
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomPacer{
		rng: rng,
		ranges: map[Reason][2]float64{
			BetweenStrategies:  {cfg.StrategyPauseMin, cfg.StrategyPauseMax},
			WhileReading:       {cfg.ScrollPauseMin, cfg.ScrollPauseMax},
			BetweenCommunities: {cfg.CommunityPauseMin, cfg.CommunityPauseMax},
		},
	}
}

func (p *RandomPacer) Pause(reason Reason) time.Duration {
	bounds, ok := p.ranges[reason]
	if !ok || bounds[1] <= 0 {
		return 0
	}
	p.mu.Lock()
	frac := p.rng.Float64()
	p.mu.Unlock()
	seconds := bounds[0] + frac*(bounds[1]-bounds[0])
	return time.Duration(seconds * float64(time.Second))
}
