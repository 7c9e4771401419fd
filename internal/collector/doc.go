// Package collector gathers relevant posts from every configured subreddit.
//
// For each community the Collector picks a primary and a distinct secondary
// listing strategy, spends a third of a jittered budget on each, and keeps only
// posts the relevance filter accepts. Communities are visited in random order
// with pauses between them. A failing community is logged and skipped; a rate
// limit additionally triggers a fixed cool-down. The merged result is unique by
// post ID and ordered newest first.
//
// Pauses go through a Pacer and a Sleeper so tests run without delay.
package collector
