package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"reddittrack/internal/config"
	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	// tokenSkew refreshes the bearer token slightly before Reddit expires it.
	tokenSkew    = time.Minute
	maxBodyBytes = 8 << 20
)

// Config captures the settings the API client needs.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	APIBaseURL   string
	AuthURL      string
	Timeout      time.Duration
	BodyMaxChars int
}

// ConfigFromApp derives client settings from the application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		APIBaseURL:   cfg.Reddit.APIBaseURL,
		AuthURL:      cfg.Reddit.AuthURL,
		Timeout:      time.Duration(cfg.Reddit.RequestTimeout) * time.Second,
		BodyMaxChars: cfg.Collection.BodyMaxChars,
	}
}

// Client fetches listings through the OAuth JSON API using an
// application-only (client credentials) token.
type Client struct {
	cfg        Config
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger; the default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for token expiry (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUserAgent pins the User-Agent header instead of the varied default.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient constructs an API client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		cfg:        cfg,
		userAgent:  VariedUserAgent(cfg.UserAgent, nil),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.APIBaseURL = strings.TrimRight(c.cfg.APIBaseURL, "/")
	return c
}

// FetchListing returns up to limit submissions from r/community in the given order.
func (c *Client) FetchListing(ctx context.Context, community string, strategy Strategy, limit int) ([]post.Record, error) {
	community = strings.TrimSpace(community)
	if community == "" {
		return nil, errors.New("reddit: community required")
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s?%s", c.cfg.APIBaseURL, url.PathEscape(community), strategy.Sort(),
		url.Values{"limit": {strconv.Itoa(clampLimit(limit))}, "raw_json": {"1"}}.Encode())

	body, err := c.getWithToken(ctx, community, endpoint)
	if err != nil {
		return nil, err
	}
	records, skipped, err := parseListing(body, community, c.cfg.BodyMaxChars, c.logger)
	if err != nil {
		return nil, fmt.Errorf("reddit: r/%s/%s: %w", community, strategy.Sort(), err)
	}
	if skipped > 0 {
		logging.WarnWithContext(c.logger, "malformed listing entries skipped", "listing_entries_skipped",
			logging.String(logging.FieldCommunity, community),
			logging.String(logging.FieldStrategy, string(strategy)),
			logging.Int("skipped", skipped),
			logging.String(logging.FieldImpact, "some posts from this listing were not considered"),
		)
	}
	return records, nil
}

// getWithToken performs an authenticated GET, refreshing the token once if
// Reddit rejects it.
func (c *Client) getWithToken(ctx context.Context, community, endpoint string) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		body, status, err := c.get(ctx, community, endpoint, token)
		if status == http.StatusUnauthorized && attempt == 0 {
			c.invalidateToken()
			continue
		}
		return body, err
	}
	return nil, errors.New("reddit: unauthorized after token refresh")
}

func (c *Client) get(ctx context.Context, community, endpoint, token string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("reddit: new request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("reddit: get r/%s: %w", community, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reddit: read r/%s: %w", community, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, statusError(resp, community, endpoint, body)
	}
	return body, resp.StatusCode, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", errors.New("reddit: client id and secret required for api transport")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reddit auth: new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reddit auth: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp, "", c.cfg.AuthURL, body)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("reddit auth: decode token: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("reddit auth: %s", parsed.Error)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("reddit auth: empty access token")
	}

	lifetime := time.Duration(parsed.ExpiresIn) * time.Second
	if lifetime > tokenSkew {
		lifetime -= tokenSkew
	}
	c.token = parsed.AccessToken
	c.tokenExpiry = c.now().Add(lifetime)
	c.logger.Debug("reddit token refreshed", logging.Duration("lifetime", lifetime))
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

var (
	uaPlatforms = []string{"MacOS", "Windows", "Linux"}
	uaVersions  = []string{"91.0", "92.0", "93.0", "94.0", "95.0"}
)

// VariedUserAgent decorates base in Reddit's recommended
// "platform:app:version (by /u/name)" shape with a randomly chosen platform
// and version. A base already in that shape is returned unchanged.
func VariedUserAgent(base string, rng *rand.Rand) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "RedditTracker/1.0"
	}
	if strings.Contains(base, "(by /u/") {
		return base
	}
	pick := rand.IntN
	if rng != nil {
		pick = rng.IntN
	}
	return fmt.Sprintf("%s:%s:v%s (by /u/tracker_bot)", uaPlatforms[pick(len(uaPlatforms))], base, uaVersions[pick(len(uaVersions))])
}
