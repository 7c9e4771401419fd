// Package archive persists analyzed posts.
//
// Every run writes a daily JSON export, posts_YYYY-MM-DD.json, which a rerun
// on the same day overwrites. Optional sinks keep longer history: a SQLite
// database (modernc.org/sqlite) that backs the history command, and a
// Postgres table (lib/pq) for sharing results with other tools.
package archive
