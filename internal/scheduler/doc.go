// Package scheduler runs a job once a day at a configured local time. A failed
// run is logged and the loop waits for the next day; only cancellation stops
// it.
package scheduler
