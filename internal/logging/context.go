package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one collection run across every log line it produces.
	FieldRunID = "run_id"
	// FieldCommunity is the subreddit currently being processed.
	FieldCommunity = "community"
	// FieldStrategy is the listing order (new, hot, rising) being fetched.
	FieldStrategy = "strategy"
	// FieldEventType classifies a log line for filtering, e.g. "rate_limited".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPostID identifies a single post.
	FieldPostID = "post_id"
)

type contextKey int

const (
	runIDKey contextKey = iota
	communityKey
)

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(runID))
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(runIDKey).(string)
	return value, ok && value != ""
}

// WithCommunity returns a context carrying the subreddit being processed.
func WithCommunity(ctx context.Context, community string) context.Context {
	return context.WithValue(ctx, communityKey, strings.TrimSpace(community))
}

// CommunityFromContext returns the subreddit stored by WithCommunity.
func CommunityFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(communityKey).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if community, ok := CommunityFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCommunity, community))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return logger.With(args...)
}
