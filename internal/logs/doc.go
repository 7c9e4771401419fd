// Package logs reads the daily log files written by the logging package.
//
// Last serves "reddittrack logs -n N"; Since and Follow back the --follow mode,
// which polls by byte offset so a long-running scheduler can be watched from
// another terminal. Only complete lines are returned; a line still being
// written is picked up on the next poll.
package logs
