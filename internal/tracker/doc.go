// Package tracker runs one end-to-end pass: collect relevant posts, drop the
// ones already reported, classify the rest, archive them, mark them seen,
// render the report, and notify.
//
// A run holds an exclusive file lock so a scheduled run and a manual run can
// never interleave on the same ledger.
package tracker
