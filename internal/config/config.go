package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Reddit contains credentials and transport settings for the Reddit source.
type Reddit struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	UserAgent      string `toml:"user_agent"`
	Transport      string `toml:"transport"`
	APIBaseURL     string `toml:"api_base_url"`
	AuthURL        string `toml:"auth_url"`
	FeedBaseURL    string `toml:"feed_base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Collection describes what to fetch and how much of it.
type Collection struct {
	Subreddits   []string `toml:"subreddits"`
	Keywords     []string `toml:"keywords"`
	PostLimit    int      `toml:"post_limit"`
	LimitJitter  int      `toml:"limit_jitter"`
	MinLimit     int      `toml:"min_limit"`
	MaxLimit     int      `toml:"max_limit"`
	BodyMaxChars int      `toml:"body_max_chars"`
}

// Pacing contains the human-like delay ranges, in seconds.
type Pacing struct {
	Enabled           bool    `toml:"enabled"`
	StrategyPauseMin  float64 `toml:"strategy_pause_min"`
	StrategyPauseMax  float64 `toml:"strategy_pause_max"`
	ScrollPauseMin    float64 `toml:"scroll_pause_min"`
	ScrollPauseMax    float64 `toml:"scroll_pause_max"`
	ScrollEvery       int     `toml:"scroll_every"`
	CommunityPauseMin float64 `toml:"community_pause_min"`
	CommunityPauseMax float64 `toml:"community_pause_max"`
	RateLimitCooldown int     `toml:"rate_limit_cooldown"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	ReportDir string `toml:"report_dir"`
	LogDir    string `toml:"log_dir"`
}

// Ledger selects and configures the seen-post ledger backend.
type Ledger struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisKey      string `toml:"redis_key"`
}

// Category is one taxonomy entry: a label and its keyword substrings.
type Category struct {
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
}

// Classification contains sentiment scorer and taxonomy settings.
type Classification struct {
	Scorer     string     `toml:"scorer"`
	Categories []Category `toml:"categories"`
}

// LLM contains LLM connection settings used by the llm scorer.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Archive contains settings for persisting analyzed posts.
type Archive struct {
	HistoryEnabled bool   `toml:"history_enabled"`
	PostgresDSN    string `toml:"postgres_dsn"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	HighPriority   bool   `toml:"high_priority"`
	Errors         bool   `toml:"errors"`
	MaxPostAlerts  int    `toml:"max_post_alerts"`
}

// Schedule contains the daily run time used by the schedule command.
type Schedule struct {
	At         string `toml:"at"`
	RunOnStart bool   `toml:"run_on_start"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reddittrack.
//
// Configuration sections by subsystem:
//   - Reddit: API credentials and transport selection
//   - Collection: subreddits, keywords, and per-subreddit budgets
//   - Pacing: human-like delays and the rate-limit cool-down
//   - Paths: data, report, and log directories
//   - Ledger: seen-post ledger backend
//   - Classification: sentiment scorer and category taxonomy
//   - LLM: connection settings for the llm scorer
//   - Archive: SQLite history and optional Postgres sink
//   - Notifications: ntfy push notification settings
//   - Schedule: daily run time
//   - Logging: log format, level, and retention
type Config struct {
	Reddit         Reddit         `toml:"reddit"`
	Collection     Collection     `toml:"collection"`
	Pacing         Pacing         `toml:"pacing"`
	Paths          Paths          `toml:"paths"`
	Ledger         Ledger         `toml:"ledger"`
	Classification Classification `toml:"classification"`
	LLM            LLM            `toml:"llm"`
	Archive        Archive        `toml:"archive"`
	Notifications  Notifications  `toml:"notifications"`
	Schedule       Schedule       `toml:"schedule"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reddittrack/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is applied first without overriding variables already set.
// The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reddittrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, report, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the seen-post ledger file location.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.Paths.DataDir, "seen_posts.json")
}

// HistoryDBPath returns the SQLite history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reddittrack.lock")
}

// ScrollEvery returns how many scanned items separate reading pauses.
func (c *Config) ScrollEvery() int {
	if c.Pacing.ScrollEvery <= 0 {
		return defaultScrollEvery
	}
	return c.Pacing.ScrollEvery
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
