package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reddittrack/internal/logging"
	"reddittrack/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		day    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daily log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			date := time.Now()
			if day != "" {
				if date, err = time.ParseInLocation("2006-01-02", day, time.Local); err != nil {
					return fmt.Errorf("--day: expected YYYY-MM-DD, got %q", day)
				}
			}
			path := logging.DailyLogPath(cfg.Paths.LogDir, date)

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tail) == 0 && !follow {
				fmt.Fprintf(out, "No log entries in %s\n", path)
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			return logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&day, "day", "", "Show the log for this day (YYYY-MM-DD) instead of today")
	return cmd
}
