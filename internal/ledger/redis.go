package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

// RedisOptions configures the Redis-backed ledger.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Key names the set of seen IDs. The last-updated timestamp is stored
	// under Key + ":last_updated".
	Key string
}

// RedisLedger stores seen IDs in a Redis set so several hosts can share one
// ledger.
type RedisLedger struct {
	client  *redis.Client
	key     string
	addr    string
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// OpenRedis connects to Redis and verifies the server responds. An unreachable
// server yields a usable ledger together with a *LoadError; later operations
// report their own errors.
func OpenRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisLedger, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("ledger: redis address is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = "reddittrack:seen"
	}
	l := &RedisLedger{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		key:     key,
		addr:    opts.Addr,
		logger:  logging.NewComponentLogger(logger, "ledger"),
		now:     time.Now,
		timeout: 10 * time.Second,
	}

	pingCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.client.Ping(pingCtx).Err(); err != nil {
		return l, &LoadError{Location: l.location(), Err: err}
	}
	return l, nil
}

func (l *RedisLedger) location() string {
	return fmt.Sprintf("redis://%s/%s", l.addr, l.key)
}

func (l *RedisLedger) lastUpdatedKey() string {
	return l.key + ":last_updated"
}

func (l *RedisLedger) FilterNew(ctx context.Context, records []post.Record) ([]post.Record, error) {
	if len(records) == 0 {
		return []post.Record{}, nil
	}
	members := make([]interface{}, len(records))
	for i, rec := range records {
		members[i] = rec.ID
	}
	flags, err := l.client.SMIsMember(ctx, l.key, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger: check membership: %w", err)
	}
	return filterUnseen(records, func(i int) bool { return i < len(flags) && flags[i] }), nil
}

func (l *RedisLedger) MarkAsSeen(ctx context.Context, ids []string) error {
	members := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			members = append(members, id)
		}
	}
	stamp := l.now().Format(time.RFC3339Nano)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(members) > 0 {
			pipe.SAdd(ctx, l.key, members...)
		}
		pipe.Set(ctx, l.lastUpdatedKey(), stamp, 0)
		return nil
	})
	if err != nil {
		return &SaveError{Location: l.location(), Err: err}
	}
	l.logger.Debug("ledger persisted",
		logging.Int("added", len(members)),
		logging.String("key", l.key))
	return nil
}

func (l *RedisLedger) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.key, strings.TrimSpace(id)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger: check membership: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Backend: "redis", Location: l.location()}
	count, err := l.client.SCard(ctx, l.key).Result()
	if err != nil {
		return stats, fmt.Errorf("ledger: count: %w", err)
	}
	stats.Count = int(count)

	raw, err := l.client.Get(ctx, l.lastUpdatedKey()).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return stats, fmt.Errorf("ledger: read last updated: %w", err)
	default:
		if parsed, perr := parseTimestamp(raw); perr == nil {
			stats.LastUpdated = parsed
		}
	}
	return stats, nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
