package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReddit()
	if err := c.normalizeCollection(); err != nil {
		return err
	}
	c.normalizePacing()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeClassification()
	c.normalizeLLM()
	c.normalizeArchive()
	c.normalizeNotifications()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		if value, ok := lookupEnvTrimmed("REPORT_DIR"); ok {
			c.Paths.ReportDir = value
		} else {
			c.Paths.ReportDir = defaultReportDir
		}
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReddit() {
	c.Reddit.ClientID = strings.TrimSpace(c.Reddit.ClientID)
	if c.Reddit.ClientID == "" {
		if value, ok := lookupEnvTrimmed("REDDIT_CLIENT_ID"); ok {
			c.Reddit.ClientID = value
		}
	}
	c.Reddit.ClientSecret = strings.TrimSpace(c.Reddit.ClientSecret)
	if c.Reddit.ClientSecret == "" {
		if value, ok := lookupEnvTrimmed("REDDIT_CLIENT_SECRET"); ok {
			c.Reddit.ClientSecret = value
		}
	}
	c.Reddit.UserAgent = strings.TrimSpace(c.Reddit.UserAgent)
	if value, ok := lookupEnvTrimmed("REDDIT_USER_AGENT"); ok && (c.Reddit.UserAgent == "" || c.Reddit.UserAgent == defaultUserAgent) {
		c.Reddit.UserAgent = value
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = defaultUserAgent
	}
	c.Reddit.Transport = strings.ToLower(strings.TrimSpace(c.Reddit.Transport))
	if c.Reddit.Transport == "" {
		c.Reddit.Transport = defaultTransport
	}
	c.Reddit.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.APIBaseURL), "/")
	if c.Reddit.APIBaseURL == "" {
		c.Reddit.APIBaseURL = defaultAPIBaseURL
	}
	c.Reddit.AuthURL = strings.TrimSpace(c.Reddit.AuthURL)
	if c.Reddit.AuthURL == "" {
		c.Reddit.AuthURL = defaultAuthURL
	}
	c.Reddit.FeedBaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.FeedBaseURL), "/")
	if c.Reddit.FeedBaseURL == "" {
		c.Reddit.FeedBaseURL = defaultFeedBaseURL
	}
	if c.Reddit.RequestTimeout <= 0 {
		c.Reddit.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeCollection() error {
	if len(c.Collection.Subreddits) == 0 {
		if value, ok := lookupEnvTrimmed("SUBREDDITS"); ok {
			c.Collection.Subreddits = splitList(value)
		}
	}
	c.Collection.Subreddits = cleanList(c.Collection.Subreddits, false)
	if len(c.Collection.Subreddits) == 0 {
		c.Collection.Subreddits = append([]string(nil), defaultSubreddits...)
	}

	if len(c.Collection.Keywords) == 0 {
		if value, ok := lookupEnvTrimmed("KEYWORDS"); ok {
			c.Collection.Keywords = splitList(value)
		}
	}
	c.Collection.Keywords = cleanList(c.Collection.Keywords, true)
	if len(c.Collection.Keywords) == 0 {
		c.Collection.Keywords = append([]string(nil), defaultKeywords...)
	}

	if c.Collection.PostLimit == 0 {
		if value, ok := lookupEnvTrimmed("POST_LIMIT"); ok {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("POST_LIMIT: %w", err)
			}
			c.Collection.PostLimit = parsed
		} else {
			c.Collection.PostLimit = defaultPostLimit
		}
	}
	if c.Collection.LimitJitter < 0 {
		c.Collection.LimitJitter = 0
	}
	if c.Collection.MinLimit <= 0 {
		c.Collection.MinLimit = defaultMinLimit
	}
	if c.Collection.MaxLimit <= 0 {
		c.Collection.MaxLimit = defaultMaxLimit
	}
	if c.Collection.BodyMaxChars <= 0 {
		c.Collection.BodyMaxChars = defaultBodyMaxChars
	}
	return nil
}

func (c *Config) normalizePacing() {
	if c.Pacing.ScrollEvery <= 0 {
		c.Pacing.ScrollEvery = defaultScrollEvery
	}
	if c.Pacing.RateLimitCooldown < 0 {
		c.Pacing.RateLimitCooldown = 0
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	c.Ledger.RedisAddr = strings.TrimSpace(c.Ledger.RedisAddr)
	if c.Ledger.RedisAddr == "" {
		if value, ok := lookupEnvTrimmed("REDDITTRACK_REDIS_ADDR"); ok {
			c.Ledger.RedisAddr = value
		}
	}
	c.Ledger.RedisKey = strings.TrimSpace(c.Ledger.RedisKey)
	if c.Ledger.RedisKey == "" {
		c.Ledger.RedisKey = defaultRedisKey
	}
	if strings.TrimSpace(c.Ledger.Path) != "" {
		expanded, err := expandPath(c.Ledger.Path)
		if err != nil {
			return fmt.Errorf("ledger.path: %w", err)
		}
		c.Ledger.Path = expanded
	}
	return nil
}

func (c *Config) normalizeClassification() {
	c.Classification.Scorer = strings.ToLower(strings.TrimSpace(c.Classification.Scorer))
	if c.Classification.Scorer == "" {
		c.Classification.Scorer = defaultScorer
	}
	if len(c.Classification.Categories) == 0 {
		c.Classification.Categories = DefaultCategories()
		return
	}
	for i := range c.Classification.Categories {
		c.Classification.Categories[i].Name = strings.TrimSpace(c.Classification.Categories[i].Name)
		c.Classification.Categories[i].Keywords = cleanList(c.Classification.Categories[i].Keywords, true)
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := lookupEnvTrimmed("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.PostgresDSN = strings.TrimSpace(c.Archive.PostgresDSN)
	if c.Archive.PostgresDSN == "" {
		if value, ok := lookupEnvTrimmed("REDDITTRACK_POSTGRES_DSN"); ok {
			c.Archive.PostgresDSN = value
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := lookupEnvTrimmed("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.MaxPostAlerts < 0 {
		c.Notifications.MaxPostAlerts = 0
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.At = strings.TrimSpace(c.Schedule.At)
	if c.Schedule.At == "" {
		c.Schedule.At = defaultScheduleAt
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnvTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func splitList(value string) []string {
	return strings.Split(value, ",")
}

// cleanList trims entries, drops blanks, and removes duplicates while keeping
// first-seen order. Keywords are lowercased so matching stays case-insensitive.
func cleanList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
