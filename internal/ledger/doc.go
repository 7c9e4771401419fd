// Package ledger remembers which posts have already been processed so a post
// is reported at most once across runs.
//
// Two backends exist. The file backend keeps the set in memory and rewrites a
// small JSON document atomically after every mark. The Redis backend stores
// the set server-side for deployments that run the tracker from more than one
// host. Both report unreadable state as a *LoadError and failed persistence as
// a *SaveError; neither is fatal to a run.
package ledger
