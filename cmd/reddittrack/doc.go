// Command reddittrack collects Reddit posts that match configured keywords,
// classifies their sentiment and topic, and writes a daily HTML report.
//
// Typical use is "reddittrack run" from cron or "reddittrack schedule" as a
// long-running service. "reddittrack check" verifies credentials, directories,
// and optional backends before the first run.
package main
