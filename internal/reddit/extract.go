package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reddittrack/internal/logging"
	"reddittrack/internal/post"
)

const permalinkHost = "https://reddit.com"

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type submission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	IsSelf      bool    `json:"is_self"`
}

var errNotSubmission = errors.New("not a link submission")

// parseListing decodes a listing response. Children that are not submissions
// or fail to decode are skipped and counted.
func parseListing(body []byte, community string, bodyMax int, logger *slog.Logger) ([]post.Record, int, error) {
	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode listing: %w", err)
	}
	if envelope.Kind != "" && envelope.Kind != "Listing" {
		return nil, 0, fmt.Errorf("decode listing: unexpected kind %q", envelope.Kind)
	}

	records := make([]post.Record, 0, len(envelope.Data.Children))
	skipped := 0
	for idx, raw := range envelope.Data.Children {
		rec, err := decodeChild(raw, community, bodyMax)
		if err != nil {
			skipped++
			logger.Debug("listing entry skipped",
				logging.String(logging.FieldCommunity, community),
				logging.Int("index", idx),
				logging.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func decodeChild(raw json.RawMessage, community string, bodyMax int) (post.Record, error) {
	var child listingChild
	if err := json.Unmarshal(raw, &child); err != nil {
		return post.Record{}, err
	}
	if child.Kind != "t3" {
		return post.Record{}, fmt.Errorf("%w: kind %q", errNotSubmission, child.Kind)
	}
	var sub submission
	if err := json.Unmarshal(child.Data, &sub); err != nil {
		return post.Record{}, err
	}
	if strings.TrimSpace(sub.ID) == "" {
		return post.Record{}, errors.New("submission without id")
	}
	return buildRecord(sub, community, bodyMax), nil
}

func buildRecord(sub submission, community string, bodyMax int) post.Record {
	rec := post.Record{
		ID:           strings.TrimSpace(sub.ID),
		Title:        sub.Title,
		Body:         truncateRunes(sub.Selftext, bodyMax),
		Author:       authorOrDeleted(sub.Author),
		Community:    firstNonEmpty(sub.Subreddit, community),
		Score:        sub.Score,
		CommentCount: sub.NumComments,
		UpvoteRatio:  clampRatio(sub.UpvoteRatio),
		IsSelf:       sub.IsSelf,
	}
	rec.SetCreated(unixFloat(sub.CreatedUTC))
	rec.Permalink = permalinkURL(sub.Permalink, rec.Community, rec.ID)
	return rec
}

func authorOrDeleted(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return post.DeletedAuthor
	}
	return author
}

func permalinkURL(permalink, community, id string) string {
	permalink = strings.TrimSpace(permalink)
	switch {
	case strings.HasPrefix(permalink, "http://"), strings.HasPrefix(permalink, "https://"):
		return permalink
	case permalink != "":
		if !strings.HasPrefix(permalink, "/") {
			permalink = "/" + permalink
		}
		return permalinkHost + permalink
	default:
		return fmt.Sprintf("%s/r/%s/comments/%s/", permalinkHost, community, id)
	}
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

func unixFloat(seconds float64) time.Time {
	whole := int64(seconds)
	frac := seconds - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second)))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
