// Package notifications pushes run events to ntfy.
//
// Callers publish an Event with a Payload; the service formats the title,
// body, tags, and priority headers. When no topic is configured, or the event
// kind is switched off in config, Publish is a no-op.
package notifications
