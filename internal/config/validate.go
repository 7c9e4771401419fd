package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateClassification(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateReddit() error {
	switch c.Reddit.Transport {
	case TransportAPI, TransportFeed:
	default:
		return fmt.Errorf("reddit.transport: unsupported value %q (want api or feed)", c.Reddit.Transport)
	}
	if c.Reddit.RequestTimeout <= 0 {
		return errors.New("reddit.request_timeout must be positive")
	}
	return nil
}

// RequireCredentials reports whether the API transport has what it needs to
// authenticate. Commands that only inspect local state skip this check.
func (c *Config) RequireCredentials() error {
	if c.Reddit.Transport != TransportAPI {
		return nil
	}
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reddittrack/config.toml"
		}
		return fmt.Errorf("reddit.client_id and reddit.client_secret are required. Set REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET or edit %s (create with 'reddittrack config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateCollection() error {
	if len(c.Collection.Subreddits) == 0 {
		return errors.New("collection.subreddits must list at least one subreddit")
	}
	if c.Collection.PostLimit <= 0 {
		return errors.New("collection.post_limit must be positive")
	}
	if c.Collection.MinLimit > c.Collection.MaxLimit {
		return errors.New("collection.min_limit must not exceed collection.max_limit")
	}
	if c.Collection.BodyMaxChars <= 0 {
		return errors.New("collection.body_max_chars must be positive")
	}
	return nil
}

func (c *Config) validatePacing() error {
	ranges := []struct {
		name     string
		min, max float64
	}{
		{"strategy_pause", c.Pacing.StrategyPauseMin, c.Pacing.StrategyPauseMax},
		{"scroll_pause", c.Pacing.ScrollPauseMin, c.Pacing.ScrollPauseMax},
		{"community_pause", c.Pacing.CommunityPauseMin, c.Pacing.CommunityPauseMax},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max < 0 {
			return fmt.Errorf("pacing.%s bounds must not be negative", r.name)
		}
		if r.min > r.max {
			return fmt.Errorf("pacing.%s_min must not exceed pacing.%s_max", r.name, r.name)
		}
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case LedgerBackendFile:
	case LedgerBackendRedis:
		if c.Ledger.RedisAddr == "" {
			return errors.New("ledger.redis_addr must be set when ledger.backend is redis")
		}
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (want file or redis)", c.Ledger.Backend)
	}
	return nil
}

func (c *Config) validateClassification() error {
	switch c.Classification.Scorer {
	case ScorerLexicon:
	case ScorerLLM:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key must be set when classification.scorer is llm (or set OPENROUTER_API_KEY)")
		}
	default:
		return fmt.Errorf("classification.scorer: unsupported value %q (want lexicon or llm)", c.Classification.Scorer)
	}
	names := make(map[string]struct{}, len(c.Classification.Categories))
	for i, category := range c.Classification.Categories {
		if category.Name == "" {
			return fmt.Errorf("classification.categories[%d].name must be set", i)
		}
		if strings.EqualFold(category.Name, "General") {
			return errors.New("classification.categories must not redefine the General fallback")
		}
		if _, dup := names[category.Name]; dup {
			return fmt.Errorf("classification.categories: duplicate name %q", category.Name)
		}
		names[category.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, _, err := c.ScheduleClock(); err != nil {
		return err
	}
	return nil
}

// ScheduleClock parses schedule.at into hour and minute.
func (c *Config) ScheduleClock() (int, int, error) {
	parsed, err := time.Parse("15:04", c.Schedule.At)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule.at: expected HH:MM, got %q", c.Schedule.At)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
