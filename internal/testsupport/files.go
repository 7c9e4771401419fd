package testsupport

import (
	"fmt"
	"time"

	"reddittrack/internal/post"
)

// Record builds a post record in community created at the given time. The
// permalink follows the canonical reddit form.
func Record(id, community, title, body string, created time.Time) post.Record {
	rec := post.Record{
		ID:          id,
		Title:       title,
		Body:        body,
		Author:      "tester",
		Community:   community,
		Permalink:   fmt.Sprintf("https://reddit.com/r/%s/comments/%s/", community, id),
		UpvoteRatio: 1,
		IsSelf:      body != "",
	}
	rec.SetCreated(created)
	return rec
}

// Engaged returns rec with score and comment counts set.
func Engaged(rec post.Record, score, comments int) post.Record {
	rec.Score = score
	rec.CommentCount = comments
	return rec
}
