package config

const (
	defaultDataDir              = "~/.local/share/reddittrack"
	defaultReportDir            = "~/.local/share/reddittrack/reports"
	defaultLogDir               = "~/.local/share/reddittrack/logs"
	defaultUserAgent            = "RedditTracker/1.0"
	defaultTransport            = TransportAPI
	defaultAPIBaseURL           = "https://oauth.reddit.com"
	defaultAuthURL              = "https://www.reddit.com/api/v1/access_token"
	defaultFeedBaseURL          = "https://www.reddit.com"
	defaultRequestTimeout       = 30
	defaultPostLimit            = 100
	defaultLimitJitter          = 10
	defaultMinLimit             = 20
	defaultMaxLimit             = 150
	defaultBodyMaxChars         = 500
	defaultScrollEvery          = 10
	defaultRateLimitCooldown    = 60
	defaultLedgerBackend        = LedgerBackendFile
	defaultRedisKey             = "reddittrack:seen"
	defaultScorer               = ScorerLexicon
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/fay2026/reddittrack"
	defaultLLMTitle             = "reddittrack sentiment"
	defaultLLMTimeoutSeconds    = 60
	defaultNotifyRequestTimeout = 10
	defaultNotifyMaxPostAlerts  = 5
	defaultScheduleAt           = "08:00"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Transport names accepted by reddit.transport.
const (
	TransportAPI  = "api"
	TransportFeed = "feed"
)

// Backend names accepted by ledger.backend.
const (
	LedgerBackendFile  = "file"
	LedgerBackendRedis = "redis"
)

// Scorer names accepted by classification.scorer.
const (
	ScorerLexicon = "lexicon"
	ScorerLLM     = "llm"
)

var (
	defaultSubreddits = []string{"complaints", "techsupport", "ProductComplaints"}
	defaultKeywords   = []string{"complaint", "issue", "problem", "bug", "demand", "request", "need", "broken", "not working"}
)

// DefaultCategories returns the built-in category taxonomy in match order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Bug/Technical Issue", Keywords: []string{"bug", "error", "crash", "broken", "not working", "doesnt work", "doesn't work", "glitch", "issue", "technical"}},
		{Name: "Feature Request", Keywords: []string{"request", "feature", "add", "wish", "would like", "should have", "need", "want", "demand", "please add"}},
		{Name: "Complaint", Keywords: []string{"complaint", "terrible", "awful", "worst", "hate", "disappointed", "frustrating", "annoying", "poor", "bad"}},
		{Name: "Service Issue", Keywords: []string{"support", "service", "customer service", "help", "response", "refund", "cancel", "billing"}},
		{Name: "Performance", Keywords: []string{"slow", "lag", "performance", "speed", "fast", "optimization", "loading", "timeout"}},
	}
}

// Default returns a Config populated with repository defaults. Subreddits and
// keywords stay empty here so environment fallbacks can apply during normalize.
func Default() Config {
	return Config{
		Reddit: Reddit{
			UserAgent:      defaultUserAgent,
			Transport:      defaultTransport,
			APIBaseURL:     defaultAPIBaseURL,
			AuthURL:        defaultAuthURL,
			FeedBaseURL:    defaultFeedBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Collection: Collection{
			LimitJitter:  defaultLimitJitter,
			MinLimit:     defaultMinLimit,
			MaxLimit:     defaultMaxLimit,
			BodyMaxChars: defaultBodyMaxChars,
		},
		Pacing: Pacing{
			Enabled:           true,
			StrategyPauseMin:  1,
			StrategyPauseMax:  3,
			ScrollPauseMin:    0.5,
			ScrollPauseMax:    2,
			ScrollEvery:       defaultScrollEvery,
			CommunityPauseMin: 3,
			CommunityPauseMax: 8,
			RateLimitCooldown: defaultRateLimitCooldown,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Ledger: Ledger{
			Backend:  defaultLedgerBackend,
			RedisKey: defaultRedisKey,
		},
		Classification: Classification{
			Scorer: defaultScorer,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Archive: Archive{
			HistoryEnabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunSummary:     true,
			HighPriority:   true,
			Errors:         true,
			MaxPostAlerts:  defaultNotifyMaxPostAlerts,
		},
		Schedule: Schedule{
			At: defaultScheduleAt,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
