// Package relevance decides whether a collected post mentions any tracked keyword.
package relevance

import (
	"strings"

	"reddittrack/internal/post"
)

// Filter matches posts against a keyword list. Matching is a case-insensitive
// substring test, so "bug" also matches "debugging".
type Filter struct {
	keywords []string
}

// New builds a Filter. Keywords are trimmed and lower-cased; blanks are
// dropped. A Filter with no keywords matches nothing.
func New(keywords []string) *Filter {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	return &Filter{keywords: cleaned}
}

// Keywords returns the normalized keyword list.
func (f *Filter) Keywords() []string {
	return append([]string(nil), f.keywords...)
}

// Matches reports whether the post's title or body contains any keyword.
func (f *Filter) Matches(rec post.Record) bool {
	if f == nil || len(f.keywords) == 0 {
		return false
	}
	return f.MatchesText(rec.Text())
}

// MatchesText applies the keyword test to already lower-cased text.
func (f *Filter) MatchesText(text string) bool {
	if f == nil {
		return false
	}
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
