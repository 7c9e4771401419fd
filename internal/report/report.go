package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reddittrack/internal/post"
)

//go:embed report.html.tmpl
var pageSource string

var page = template.Must(template.New("report").Parse(pageSource))

const (
	dateLayout    = "2006-01-02"
	excerptRunes  = 300
	noTextExcerpt = "[No text content]"
)

// Stats are the headline numbers shown above the post list.
type Stats struct {
	Total        int
	HighPriority int
	Negative     int
	Communities  int
}

// Summarize counts totals over the analyzed posts.
func Summarize(posts []post.Enriched) Stats {
	stats := Stats{Total: len(posts)}
	communities := make(map[string]struct{})
	for _, p := range posts {
		if p.Priority == post.High {
			stats.HighPriority++
		}
		if p.Sentiment == post.Negative {
			stats.Negative++
		}
		communities[strings.ToLower(p.Community)] = struct{}{}
	}
	stats.Communities = len(communities)
	return stats
}

type card struct {
	Title          string
	URL            template.URL
	Community      string
	Author         string
	Created        string
	Score          int
	Comments       int
	Excerpt        string
	Priority       post.Priority
	PriorityClass  string
	Sentiment      post.Sentiment
	SentimentLabel string
	Categories     []string
}

type pageData struct {
	Date  string
	Stats Stats
	Posts []card
}

// Render writes the HTML report for date. Posts are shown in the order given;
// an empty list renders the "no new posts" panel.
func Render(w io.Writer, date time.Time, posts []post.Enriched) error {
	title := cases.Title(language.English)
	data := pageData{Date: date.Format(dateLayout), Stats: Summarize(posts)}
	for _, p := range posts {
		data.Posts = append(data.Posts, card{
			Title:          p.Title,
			URL:            safeURL(p.Permalink),
			Community:      p.Community,
			Author:         p.Author,
			Created:        p.CreatedDate,
			Score:          p.Score,
			Comments:       p.CommentCount,
			Excerpt:        excerpt(p.Body),
			Priority:       p.Priority,
			PriorityClass:  strings.ToLower(string(p.Priority)),
			Sentiment:      p.Sentiment,
			SentimentLabel: title.String(string(p.Sentiment)),
			Categories:     p.Categories,
		})
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Path returns <dir>/report_YYYY-MM-DD.html.
func Path(dir string, date time.Time) string {
	return filepath.Join(dir, "report_"+date.Format(dateLayout)+".html")
}

// WriteFile renders the report into dir and returns its path. A report for the
// same day is replaced.
func WriteFile(dir string, date time.Time, posts []post.Enriched) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := Path(dir, date)
	tmp, err := os.CreateTemp(dir, ".report-*.html")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Render(tmp, date, posts); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

func excerpt(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return noTextExcerpt
	}
	runes := []rune(body)
	if len(runes) > excerptRunes {
		return string(runes[:excerptRunes]) + "..."
	}
	return body
}

// safeURL only lets http(s) links through as trusted hrefs.
func safeURL(raw string) template.URL {
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		return template.URL(raw)
	}
	return template.URL("#")
}
