// Package reddit fetches subreddit listings and turns them into post records.
//
// Two transports satisfy Source: Client talks to the OAuth JSON API using an
// application-only token, and FeedClient reads the public Atom feeds when no
// credentials are configured. Both extract records totally: missing authors
// become post.DeletedAuthor, missing text becomes "", and a malformed entry is
// skipped without failing the rest of the listing.
//
// Rate limiting is surfaced as *RateLimitError so callers can back off; use
// IsRateLimited to recognise it through wrapping.
package reddit
