package relevance_test

import (
	"testing"

	"reddittrack/internal/post"
	"reddittrack/internal/relevance"
)

func TestFilterMatches(t *testing.T) {
	filter := relevance.New([]string{"  Bug ", "", "not working"})

	cases := []struct {
		name  string
		title string
		body  string
		want  bool
	}{
		{"substring inside word", "Debugging the system", "", true},
		{"case insensitive", "HUGE BUG", "", true},
		{"phrase in body", "printer", "it is not working at all", true},
		{"phrase joined across title and body", "not", "working", true},
		{"no keyword", "Great release", "love it", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := filter.Matches(post.Record{Title: tc.title, Body: tc.body})
			if got != tc.want {
				t.Fatalf("Matches(%q, %q) = %v want %v", tc.title, tc.body, got, tc.want)
			}
		})
	}
}

func TestFilterWithoutKeywordsMatchesNothing(t *testing.T) {
	for _, keywords := range [][]string{nil, {}, {" ", ""}} {
		filter := relevance.New(keywords)
		if filter.Matches(post.Record{Title: "bug crash broken"}) {
			t.Fatalf("expected no match for keywords %q", keywords)
		}
	}
}

func TestKeywordsAreNormalized(t *testing.T) {
	got := relevance.New([]string{" Crash", "SLOW "}).Keywords()
	if len(got) != 2 || got[0] != "crash" || got[1] != "slow" {
		t.Fatalf("unexpected keywords: %q", got)
	}
}
