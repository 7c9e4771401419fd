package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reddittrack/internal/config"
	"reddittrack/internal/preflight"
	"reddittrack/internal/reddit"
	"reddittrack/internal/tracker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect, classify, and report once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			if !skipChecks {
				if err := requirePreflight(cmd.Context(), cfg, cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			tr, err := tracker.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer tr.Close()

			summary, err := tr.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, tracker.ErrRunInProgress) {
					return fmt.Errorf("%w (lock %s)", err, cfg.LockPath())
				}
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newSummaryView(summary))
			}
			out := cmd.OutOrStdout()
			printSummary(out, summary, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// requirePreflight prints failed checks and returns an error if any failed.
func requirePreflight(ctx context.Context, cfg *config.Config, out io.Writer) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	if len(failed) == 0 {
		return nil
	}
	colorize := shouldColorize(out)
	for _, r := range failed {
		fmt.Fprintln(out, renderStatusLine(r.Name, statusError, r.Detail, colorize))
	}
	return fmt.Errorf("%d preflight check(s) failed; run 'reddittrack check' for details", len(failed))
}

type communityView struct {
	Community   string   `json:"community"`
	Budget      int      `json:"budget"`
	Strategies  []string `json:"strategies"`
	Scanned     int      `json:"scanned"`
	Relevant    int      `json:"relevant"`
	RateLimited bool     `json:"rate_limited"`
	Error       string   `json:"error,omitempty"`
}

type summaryView struct {
	RunID        string          `json:"run_id"`
	StartedAt    string          `json:"started_at"`
	DurationSec  float64         `json:"duration_seconds"`
	Fetched      int             `json:"fetched"`
	Duplicates   int             `json:"duplicates"`
	Unique       int             `json:"unique"`
	New          int             `json:"new"`
	Analyzed     int             `json:"analyzed"`
	Skipped      int             `json:"skipped"`
	HighPriority int             `json:"high_priority"`
	Negative     int             `json:"negative"`
	ReportPath   string          `json:"report_path"`
	ExportPath   string          `json:"export_path,omitempty"`
	Communities  []communityView `json:"communities"`
}

func newSummaryView(s tracker.Summary) summaryView {
	view := summaryView{
		RunID:        s.RunID,
		StartedAt:    s.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		DurationSec:  s.Duration().Seconds(),
		Fetched:      s.Fetched,
		Duplicates:   s.Duplicates,
		Unique:       s.Unique,
		New:          s.New,
		Analyzed:     s.Analyzed,
		Skipped:      s.Skipped,
		HighPriority: s.HighPriority,
		Negative:     s.Negative,
		ReportPath:   s.ReportPath,
		ExportPath:   s.ExportPath,
		Communities:  make([]communityView, 0, len(s.Communities)),
	}
	for _, c := range s.Communities {
		cv := communityView{
			Community:   c.Community,
			Budget:      c.Budget,
			Strategies:  strategyNames(c.Strategies),
			Scanned:     c.Scanned,
			Relevant:    c.Relevant,
			RateLimited: c.RateLimited,
		}
		if c.Err != nil {
			cv.Error = c.Err.Error()
		}
		view.Communities = append(view.Communities, cv)
	}
	return view
}

func strategyNames(strategies []reddit.Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s)
	}
	return names
}

func printSummary(out io.Writer, s tracker.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Run "+s.RunID, colorize) {
		fmt.Fprintln(out, line)
	}

	newKind := statusOK
	if s.New == 0 {
		newKind = statusInfo
	}
	highKind := statusOK
	if s.HighPriority > 0 {
		highKind = statusWarn
	}
	skipKind := statusOK
	if s.Skipped > 0 {
		skipKind = statusWarn
	}

	fmt.Fprintln(out, renderStatusLine("Fetched", statusInfo,
		fmt.Sprintf("%d relevant, %d duplicates removed", s.Fetched, s.Duplicates), colorize))
	fmt.Fprintln(out, renderStatusLine("New posts", newKind, strconv.Itoa(s.New), colorize))
	fmt.Fprintln(out, renderStatusLine("Analyzed", skipKind,
		fmt.Sprintf("%d (%d skipped)", s.Analyzed, s.Skipped), colorize))
	fmt.Fprintln(out, renderStatusLine("High priority", highKind, strconv.Itoa(s.HighPriority), colorize))
	fmt.Fprintln(out, renderStatusLine("Negative", statusInfo, strconv.Itoa(s.Negative), colorize))
	fmt.Fprintln(out, renderStatusLine("Report", statusOK, s.ReportPath, colorize))
	if s.ExportPath != "" {
		fmt.Fprintln(out, renderStatusLine("Export", statusOK, s.ExportPath, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, s.Duration().Round(time.Millisecond).String(), colorize))

	if len(s.Communities) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Communities))
	for _, c := range s.Communities {
		note := ""
		switch {
		case c.RateLimited:
			note = "rate limited"
		case c.Err != nil:
			note = c.Err.Error()
		}
		rows = append(rows, []string{
			"r/" + c.Community,
			strings.Join(strategyNames(c.Strategies), ", "),
			strconv.Itoa(c.Scanned),
			strconv.Itoa(c.Relevant),
			note,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		num(cols("Community", "Listings", "Scanned", "Relevant", "Note"), "Scanned", "Relevant"),
		rows,
	))
}
