package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reddittrack/internal/post"
)

// Strategy is a listing order.
type Strategy string

const (
	Newest   Strategy = "newest"
	Trending Strategy = "trending"
	Rising   Strategy = "rising"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{Newest, Trending, Rising}

// Sort returns the listing path segment Reddit uses for the strategy.
func (s Strategy) Sort() string {
	switch s {
	case Trending:
		return "hot"
	case Rising:
		return "rising"
	default:
		return "new"
	}
}

// Source fetches up to limit records from one subreddit listing.
type Source interface {
	FetchListing(ctx context.Context, community string, strategy Strategy, limit int) ([]post.Record, error)
}

// maxListingLimit is the largest page Reddit serves in one request.
const maxListingLimit = 100

// RateLimitError reports that Reddit refused a request with HTTP 429.
type RateLimitError struct {
	Community  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("reddit: rate limited on r/%s (429, retry after %s)", e.Community, e.RetryAfter)
	}
	return fmt.Sprintf("reddit: rate limited on r/%s (429)", e.Community)
}

// IsRateLimited reports whether err, or any error it wraps, is a rate limit.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// StatusError reports any other non-success HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("reddit: %s: http %d: %s", e.URL, e.StatusCode, body)
}

// statusError converts a non-2xx response into the matching typed error.
func statusError(resp *http.Response, community, url string, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		if !ok {
			retryAfter, _ = parseRetryAfter(resp.Header.Get("X-Ratelimit-Reset"))
		}
		return &RateLimitError{Community: community, RetryAfter: retryAfter}
	}
	return &StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	if limit > maxListingLimit {
		return maxListingLimit
	}
	return limit
}
