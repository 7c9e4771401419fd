// Package config loads, normalizes, and validates reddittrack configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REDDIT_CLIENT_ID, SUBREDDITS, KEYWORDS, POST_LIMIT, and REPORT_DIR. A .env
// file in the working directory is applied before the environment is read, so
// deployments that predate the TOML file keep working unchanged.
//
// Always obtain settings through this package so downstream code receives
// sanitized lists, expanded paths, and clear validation errors.
package config
