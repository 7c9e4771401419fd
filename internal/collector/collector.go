package collector

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"reddittrack/internal/config"
	"reddittrack/internal/logging"
	"reddittrack/internal/post"
	"reddittrack/internal/reddit"
	"reddittrack/internal/relevance"
)

// Options controls which communities are visited and how much is fetched.
type Options struct {
	Communities []string
	BaseLimit   int
	LimitJitter int
	MinLimit    int
	MaxLimit    int
	ScrollEvery int
	// Cooldown is the pause after a rate-limited request.
	Cooldown time.Duration
}

// OptionsFromConfig derives collector options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Communities: append([]string(nil), cfg.Collection.Subreddits...),
		BaseLimit:   cfg.Collection.PostLimit,
		LimitJitter: cfg.Collection.LimitJitter,
		MinLimit:    cfg.Collection.MinLimit,
		MaxLimit:    cfg.Collection.MaxLimit,
		ScrollEvery: cfg.ScrollEvery(),
		Cooldown:    time.Duration(cfg.Pacing.RateLimitCooldown) * time.Second,
	}
}

// CommunityStats records what happened while visiting one community.
type CommunityStats struct {
	Community   string
	Budget      int
	Strategies  []reddit.Strategy
	Scanned     int
	Relevant    int
	RateLimited bool
	Err         error
}

// Result is the merged output of one collection pass.
type Result struct {
	// Posts are unique by ID and ordered newest first.
	Posts             []post.Record
	Communities       []CommunityStats
	Fetched           int
	DuplicatesRemoved int
}

// Collector drives retrieval across communities and listing strategies.
type Collector struct {
	source reddit.Source
	filter *relevance.Filter
	opts   Options
	pacer  Pacer
	sleep  Sleeper
	rng    *rand.Rand
	logger *slog.Logger
}

// Option customizes a Collector.
type Option func(*Collector)

// WithPacer overrides the pause policy.
func WithPacer(p Pacer) Option {
	return func(c *Collector) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithSleeper overrides how pauses are performed (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(c *Collector) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithRand fixes the random source used for ordering, budgets, and strategies.
func WithRand(rng *rand.Rand) Option {
	return func(c *Collector) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Collector.
func New(source reddit.Source, filter *relevance.Filter, opts Options, options ...Option) *Collector {
	c := &Collector{
		source: source,
		filter: filter,
		opts:   opts,
		pacer:  NoPacing,
		sleep:  SleepContext,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: logging.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	if c.opts.ScrollEvery <= 0 {
		c.opts.ScrollEvery = 10
	}
	return c
}

// Collect visits every community once and returns the merged result. Transport
// failures are recorded per community and never abort the pass; only context
// cancellation does, in which case the partial result is returned with the
// context error.
func (c *Collector) Collect(ctx context.Context) (Result, error) {
	communities := make([]string, 0, len(c.opts.Communities))
	for _, community := range c.opts.Communities {
		if trimmed := strings.TrimSpace(community); trimmed != "" {
			communities = append(communities, trimmed)
		}
	}
	c.rng.Shuffle(len(communities), func(i, j int) {
		communities[i], communities[j] = communities[j], communities[i]
	})

	var (
		result Result
		all    []post.Record
	)
	for idx, community := range communities {
		stats, records, err := c.collectCommunity(ctx, community)
		result.Communities = append(result.Communities, stats)
		all = append(all, records...)
		if err != nil {
			return finish(result, all), err
		}

		if idx < len(communities)-1 {
			if err := c.pause(ctx, BetweenCommunities); err != nil {
				return finish(result, all), err
			}
		}
	}
	return finish(result, all), nil
}

func finish(result Result, all []post.Record) Result {
	result.Fetched = len(all)
	result.Posts = Merge(all)
	result.DuplicatesRemoved = len(all) - len(result.Posts)
	return result
}

// collectCommunity fetches the primary and secondary strategies for one
// community. The returned error is non-nil only for context cancellation.
func (c *Collector) collectCommunity(ctx context.Context, community string) (CommunityStats, []post.Record, error) {
	ctx = logging.WithCommunity(ctx, community)
	logger := logging.WithContext(ctx, c.logger)

	primary, secondary := c.pickStrategies()
	stats := CommunityStats{
		Community:  community,
		Budget:     c.budget(),
		Strategies: []reddit.Strategy{primary, secondary},
	}
	perStrategy := stats.Budget / 3

	logger.Info("browsing community",
		logging.String("primary", string(primary)),
		logging.String("secondary", string(secondary)),
		logging.Int("budget", stats.Budget),
	)

	records, err := c.fetchStrategy(ctx, community, primary, perStrategy, &stats)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			stats.Relevant = len(records)
			return stats, records, ctxErr
		}
		return stats, nil, c.handleFetchError(ctx, logger, &stats, primary, err, "community skipped for this run")
	}

	if err := c.pause(ctx, BetweenStrategies); err != nil {
		stats.Relevant = len(records)
		return stats, records, err
	}

	more, err := c.fetchStrategy(ctx, community, secondary, perStrategy, &stats)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			records = append(records, more...)
			stats.Relevant = len(records)
			return stats, records, ctxErr
		}
		cerr := c.handleFetchError(ctx, logger, &stats, secondary, err, "only the primary listing was collected")
		stats.Relevant = len(records)
		return stats, records, cerr
	}
	records = append(records, more...)
	stats.Relevant = len(records)

	logger.Info("community collected",
		logging.Int("scanned", stats.Scanned),
		logging.Int("relevant", stats.Relevant),
	)
	return stats, records, nil
}

// handleFetchError logs a transport failure and applies the rate-limit
// cool-down. It returns an error only if the cool-down was interrupted.
func (c *Collector) handleFetchError(ctx context.Context, logger *slog.Logger, stats *CommunityStats, strategy reddit.Strategy, err error, impact string) error {
	stats.Err = err
	logging.WarnWithContext(logger, "listing fetch failed", "listing_fetch_failed",
		logging.String(logging.FieldStrategy, string(strategy)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access and reddit credentials"),
		logging.String(logging.FieldImpact, impact),
	)
	if !reddit.IsRateLimited(err) {
		return nil
	}
	stats.RateLimited = true
	logging.WarnWithContext(logger, "rate limited; cooling down", "rate_limited",
		logging.Duration("cooldown", c.opts.Cooldown),
		logging.String(logging.FieldErrorHint, "reduce post_limit or the number of subreddits"),
		logging.String(logging.FieldImpact, "run slowed by the cool-down"),
	)
	if c.opts.Cooldown <= 0 {
		return nil
	}
	return c.sleep(ctx, c.opts.Cooldown)
}

// fetchStrategy fetches one listing and keeps only relevant records, pausing
// periodically as a reader would while scrolling.
func (c *Collector) fetchStrategy(ctx context.Context, community string, strategy reddit.Strategy, limit int, stats *CommunityStats) ([]post.Record, error) {
	listing, err := c.source.FetchListing(ctx, community, strategy, limit)
	if err != nil {
		return nil, err
	}
	var kept []post.Record
	for idx, rec := range listing {
		stats.Scanned++
		if c.filter.Matches(rec) {
			kept = append(kept, rec)
		}
		if idx > 0 && idx%c.opts.ScrollEvery == 0 {
			if err := c.pause(ctx, WhileReading); err != nil {
				return kept, err
			}
		}
	}
	return kept, nil
}

func (c *Collector) pickStrategies() (reddit.Strategy, reddit.Strategy) {
	all := reddit.Strategies
	primaryIdx := c.rng.IntN(len(all))
	rest := make([]reddit.Strategy, 0, len(all)-1)
	for i, s := range all {
		if i != primaryIdx {
			rest = append(rest, s)
		}
	}
	return all[primaryIdx], rest[c.rng.IntN(len(rest))]
}

// budget applies the random jitter to the base limit and clamps the result.
func (c *Collector) budget() int {
	limit := c.opts.BaseLimit
	if j := c.opts.LimitJitter; j > 0 {
		limit += c.rng.IntN(2*j+1) - j
	}
	return ClampBudget(limit, c.opts.MinLimit, c.opts.MaxLimit)
}

// ClampBudget bounds limit to [lo, hi]. Non-positive bounds are ignored.
func ClampBudget(limit, lo, hi int) int {
	if lo > 0 && limit < lo {
		limit = lo
	}
	if hi > 0 && limit > hi {
		limit = hi
	}
	return limit
}

func (c *Collector) pause(ctx context.Context, reason Reason) error {
	d := c.pacer.Pause(reason)
	if d <= 0 {
		return ctx.Err()
	}
	c.logger.Debug("pausing", logging.String("reason", string(reason)), logging.Duration("delay", d))
	return c.sleep(ctx, d)
}

// Merge drops records whose ID was already seen (first occurrence wins) and
// orders the rest by creation time, newest first. Ties keep input order.
func Merge(records []post.Record) []post.Record {
	seen := make(map[string]struct{}, len(records))
	unique := make([]post.Record, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		unique = append(unique, rec)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].CreatedUTC > unique[j].CreatedUTC
	})
	return unique
}

// ErrNoCommunities is returned by Validate when nothing is configured.
var ErrNoCommunities = errors.New("collector: no communities configured")

// Validate reports configuration the collector cannot run with.
func (o Options) Validate() error {
	for _, community := range o.Communities {
		if strings.TrimSpace(community) != "" {
			return nil
		}
	}
	return ErrNoCommunities
}
