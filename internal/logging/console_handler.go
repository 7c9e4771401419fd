package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records for a terminal or cron mail. Run and
// community context move into a bracketed prefix, and the operator fields of
// warnings and errors go on an indented second line:
//
//	2026-10-19 08:00:03 WARN  [3f2a9c1e r/golang] collector: listing fetch failed strategy=hot error=timeout
//	    hint: check network access and reddit credentials | impact: community skipped for this run
type consoleHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	addSource bool
	fields    []field
	prefix    string
}

type consoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

type field struct {
	key   string
	value slog.Value
}

const runIDDisplayLen = 8

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &consoleOutput{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})

	var (
		component, runID, community, hint, impact string
		rest                                      []field
	)
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plain(f.value)
		case FieldRunID:
			runID = plain(f.value)
		case FieldCommunity:
			community = plain(f.value)
		case FieldErrorHint:
			hint = plain(f.value)
		case FieldImpact:
			impact = plain(f.value)
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " %-5s ", levelLabel(record.Level))
	if tag := contextTag(runID, community); tag != "" {
		b.WriteString(tag)
		b.WriteByte(' ')
	}
	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quoted(f.value))
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')
	if record.Level >= slog.LevelWarn && (hint != "" || impact != "") {
		b.WriteString("    ")
		b.WriteString(joinNonEmpty(" | ", labeled("hint", hint), labeled("impact", impact)))
		b.WriteByte('\n')
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			dst = appendField(dst, inner, ga)
		}
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: v})
}

func contextTag(runID, community string) string {
	if len(runID) > runIDDisplayLen {
		runID = runID[:runIDDisplayLen]
	}
	if community != "" {
		community = "r/" + community
	}
	tag := joinNonEmpty(" ", runID, community)
	if tag == "" {
		return ""
	}
	return "[" + tag + "]"
}

func labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// plain renders a value without quoting.
func plain(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Local().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// quoted renders a value for key=value output, quoting it when it contains
// spaces, '=' or quotes, or is empty.
func quoted(v slog.Value) string {
	s := plain(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
