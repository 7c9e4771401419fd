package main

import (
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusTags = map[statusKind]struct {
	tag   string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed, text.Bold}},
}

const (
	statusLabelWidth = 22
	statusIndent     = "  "
)

// renderStatusLine lays out "  Label:   [TAG] message". Only the tag is
// colored so values stay copyable.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusTags[kind]
	if !ok {
		style = statusTags[statusInfo]
	}
	tag := "[" + style.tag + "]"
	if colorize {
		tag = style.color.Sprint(tag)
	}

	var b strings.Builder
	b.WriteString(statusIndent)
	b.WriteString(text.Pad(label+":", statusLabelWidth, ' '))
	b.WriteByte(' ')
	b.WriteString(tag)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	return b.String()
}

// renderSectionHeader returns the title and an underline of matching width.
func renderSectionHeader(title string, colorize bool) []string {
	title = strings.TrimSpace(title)
	rule := strings.Repeat("─", text.RuneWidthWithoutEscSequences(title))
	if colorize {
		title = text.Bold.Sprint(title)
	}
	return []string{title, rule}
}

// shouldColorize reports whether writer is a terminal and NO_COLOR is unset.
func shouldColorize(writer io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
