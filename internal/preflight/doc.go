// Package preflight provides readiness checks for the filesystem paths and
// external services reddittrack depends on.
//
// These checks run in two contexts:
//   - The "reddittrack run" and "reddittrack schedule" commands call RunAll
//     before collecting and refuse to start when a check fails.
//   - The "reddittrack check" command prints every result as a table.
//
// Checks for optional backends (Redis ledger, Postgres archive, LLM scorer)
// only run when the config selects them.
package preflight
