// Package logging assembles structured slog loggers and formatting helpers used
// across reddittrack.
//
// It owns the console and JSON handlers, mirrors output into a daily log file,
// and exposes context helpers so collection code can tag log lines with the
// run ID and the subreddit being scanned. A no-op logger is provided for tests
// and wiring code that cannot fail.
package logging
