package post

import (
	"math"
	"strings"
	"time"
)

// DeletedAuthor is recorded when the source no longer knows the post's author.
const DeletedAuthor = "[deleted]"

// DateLayout formats CreatedDate.
const DateLayout = "2006-01-02 15:04:05"

// Record is one collected post. The JSON names match the daily export format.
type Record struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Body         string  `json:"selftext"`
	Author       string  `json:"author"`
	Community    string  `json:"subreddit"`
	CreatedUTC   float64 `json:"created_utc"`
	CreatedDate  string  `json:"created_date"`
	Score        int     `json:"score"`
	CommentCount int     `json:"num_comments"`
	Permalink    string  `json:"url"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	IsSelf       bool    `json:"is_self"`
}

// SetCreated stores the creation time in both its numeric and display forms.
func (r *Record) SetCreated(t time.Time) {
	utc := t.UTC()
	r.CreatedUTC = float64(utc.UnixNano()) / float64(time.Second)
	r.CreatedDate = utc.Format(DateLayout)
}

// CreatedAt returns the creation time in UTC.
func (r Record) CreatedAt() time.Time {
	sec, frac := math.Modf(r.CreatedUTC)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// Text returns the lower-cased title and body joined by a space, the input
// shared by relevance matching, categorization, and sentiment scoring.
func (r Record) Text() string {
	return strings.ToLower(r.Title + " " + r.Body)
}

// Sentiment is the tri-state label derived from polarity.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Priority is the triage label derived from engagement and polarity.
type Priority string

const (
	High   Priority = "High"
	Medium Priority = "Medium"
	Low    Priority = "Low"
)

// GeneralCategory is assigned when no taxonomy entry matches.
const GeneralCategory = "General"

// Enriched is a Record after classification. Values are built once by the
// classifier and not modified afterwards.
type Enriched struct {
	Record
	Sentiment    Sentiment `json:"sentiment"`
	Polarity     float64   `json:"polarity"`
	Subjectivity float64   `json:"subjectivity"`
	Categories   []string  `json:"categories"`
	Priority     Priority  `json:"priority"`
}
