// Package post defines the post records that flow through collection,
// deduplication, and classification.
package post
