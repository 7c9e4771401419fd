package testsupport

import (
	"path/filepath"
	"testing"

	"reddittrack/internal/config"
)

// ConfigOption adjusts the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns a config rooted in a fresh temp directory. One community
// (techsupport) and two keywords (broken, issue) are configured, pacing and
// jitter are off, and no ntfy topic is set so nothing leaves the process
// unless an option says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.ReportDir = filepath.Join(root, "reports")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Collection.Subreddits = []string{"techsupport"}
	cfg.Collection.Keywords = []string{"broken", "issue"}
	cfg.Collection.PostLimit = 30
	cfg.Collection.LimitJitter = 0
	cfg.Pacing.Enabled = false
	cfg.Classification.Categories = config.DefaultCategories()
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSubreddits replaces the configured communities.
func WithSubreddits(communities ...string) ConfigOption {
	return func(c *config.Config) { c.Collection.Subreddits = communities }
}

// WithKeywords replaces the relevance keywords.
func WithKeywords(keywords ...string) ConfigOption {
	return func(c *config.Config) { c.Collection.Keywords = keywords }
}

// WithNtfyTopic points notifications at the given topic or URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(c *config.Config) { c.Notifications.NtfyTopic = topic }
}

// WithoutHistory disables the SQLite history sink.
func WithoutHistory() ConfigOption {
	return func(c *config.Config) { c.Archive.HistoryEnabled = false }
}
