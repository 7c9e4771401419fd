// Package report renders the daily HTML report: headline counts, one card per
// analyzed post, and client-side filters by priority and sentiment.
package report
