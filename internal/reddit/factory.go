package reddit

import (
	"log/slog"
	"net/http"
	"time"

	"reddittrack/internal/config"
)

// NewSource returns the transport selected by reddit.transport.
func NewSource(cfg *config.Config, logger *slog.Logger, httpClient *http.Client) Source {
	opts := []Option{WithLogger(logger), WithHTTPClient(httpClient)}
	if cfg.Reddit.Transport == config.TransportFeed {
		return NewFeedClient(FeedConfig{
			BaseURL:      cfg.Reddit.FeedBaseURL,
			UserAgent:    cfg.Reddit.UserAgent,
			Timeout:      time.Duration(cfg.Reddit.RequestTimeout) * time.Second,
			BodyMaxChars: cfg.Collection.BodyMaxChars,
		}, opts...)
	}
	return NewClient(ConfigFromApp(cfg), opts...)
}
