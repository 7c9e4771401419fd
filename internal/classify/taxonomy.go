package classify

import (
	"strings"

	"reddittrack/internal/config"
	"reddittrack/internal/post"
	"reddittrack/internal/relevance"
)

type category struct {
	name   string
	filter *relevance.Filter
}

// Taxonomy assigns category labels by keyword substring, in declaration order.
type Taxonomy struct {
	categories []category
}

// NewTaxonomy builds a taxonomy. Entries with a blank name are ignored; an
// empty list falls back to config.DefaultCategories.
func NewTaxonomy(entries []config.Category) *Taxonomy {
	if len(entries) == 0 {
		entries = config.DefaultCategories()
	}
	t := &Taxonomy{}
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		t.categories = append(t.categories, category{name: name, filter: relevance.New(entry.Keywords)})
	}
	return t
}

// Names returns the category labels in match order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.categories))
	for i, c := range t.categories {
		names[i] = c.name
	}
	return names
}

// Categorize returns every matching label in taxonomy order, or General when
// nothing matches. The returned slice is freshly allocated.
func (t *Taxonomy) Categorize(rec post.Record) []string {
	text := rec.Text()
	var labels []string
	for _, c := range t.categories {
		if c.filter.MatchesText(text) {
			labels = append(labels, c.name)
		}
	}
	if len(labels) == 0 {
		return []string{post.GeneralCategory}
	}
	return labels
}
