package reddit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

// FeedConfig captures the settings the Atom feed client needs.
type FeedConfig struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	BodyMaxChars int
}

// FeedClient reads public subreddit Atom feeds. It needs no credentials, but
// feeds carry no score, comment count, or upvote ratio, so those stay zero.
type FeedClient struct {
	cfg        FeedConfig
	httpClient *http.Client
	parser     *gofeed.Parser
	logger     *slog.Logger
}

// NewFeedClient constructs a feed client. It accepts the same options as
// NewClient; WithClock has no effect here.
func NewFeedClient(cfg FeedConfig, opts ...Option) *FeedClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	shim := &Client{
		userAgent:  VariedUserAgent(cfg.UserAgent, nil),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(shim)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.UserAgent = shim.userAgent
	return &FeedClient{
		cfg:        cfg,
		httpClient: shim.httpClient,
		parser:     gofeed.NewParser(),
		logger:     shim.logger,
	}
}

// FetchListing returns up to limit entries from the subreddit's Atom feed.
func (f *FeedClient) FetchListing(ctx context.Context, community string, strategy Strategy, limit int) ([]post.Record, error) {
	community = strings.TrimSpace(community)
	if community == "" {
		return nil, errors.New("reddit feed: community required")
	}
	limit = clampLimit(limit)
	endpoint := fmt.Sprintf("%s/r/%s/%s/.rss?%s", f.cfg.BaseURL, url.PathEscape(community), strategy.Sort(),
		url.Values{"limit": {strconv.Itoa(limit)}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit feed: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit feed: get r/%s: %w", community, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reddit feed: read r/%s: %w", community, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, community, endpoint, body)
	}

	feed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reddit feed: parse r/%s: %w", community, err)
	}

	records := make([]post.Record, 0, len(feed.Items))
	skipped := 0
	for _, item := range feed.Items {
		if len(records) >= limit {
			break
		}
		rec, ok := f.itemRecord(item, community)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		logging.WarnWithContext(f.logger, "malformed feed entries skipped", "listing_entries_skipped",
			logging.String(logging.FieldCommunity, community),
			logging.String(logging.FieldStrategy, string(strategy)),
			logging.Int("skipped", skipped),
			logging.String(logging.FieldImpact, "some posts from this listing were not considered"),
		)
	}
	return records, nil
}

func (f *FeedClient) itemRecord(item *gofeed.Item, community string) (post.Record, bool) {
	if item == nil {
		return post.Record{}, false
	}
	id := strings.TrimPrefix(strings.TrimSpace(item.GUID), "t3_")
	if id == "" || strings.HasPrefix(id, "t1_") {
		return post.Record{}, false
	}

	body, isSelf := feedSelftext(item.Content)
	rec := post.Record{
		ID:        id,
		Title:     item.Title,
		Body:      truncateRunes(body, f.cfg.BodyMaxChars),
		Author:    post.DeletedAuthor,
		Community: community,
		IsSelf:    isSelf,
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		rec.Author = authorOrDeleted(strings.TrimPrefix(item.Authors[0].Name, "/u/"))
	}
	if len(item.Categories) > 0 {
		rec.Community = firstNonEmpty(communityName(item.Categories[0]), community)
	}
	switch {
	case item.PublishedParsed != nil:
		rec.SetCreated(*item.PublishedParsed)
	case item.UpdatedParsed != nil:
		rec.SetCreated(*item.UpdatedParsed)
	default:
		rec.SetCreated(time.Unix(0, 0))
	}
	rec.Permalink = permalinkURL(feedPermalink(item.Link), rec.Community, rec.ID)
	return rec, true
}

// communityName turns a feed category label ("r/techsupport") into the bare
// subreddit name the API transport reports.
func communityName(label string) string {
	label = strings.TrimPrefix(strings.TrimSpace(label), "/")
	if len(label) > 2 && strings.EqualFold(label[:2], "r/") {
		label = label[2:]
	}
	return strings.Trim(label, "/ ")
}

// feedSelftext extracts the rendered self text from a feed entry's HTML.
// Reddit wraps self text in a div.md block; link posts have none.
func feedSelftext(content string) (string, bool) {
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", false
	}
	md := doc.Find("div.md")
	if md.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(md.First().Text()), true
}

// feedPermalink reduces an absolute www.reddit.com link to its path so it is
// rebuilt on the same host the API transport uses.
func feedPermalink(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || parsed.Path == "" {
		return ""
	}
	return parsed.Path
}
