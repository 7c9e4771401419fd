package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reddittrack/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify credentials, directories, and configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			notifyKind, notifyDetail := statusOK, cfg.Notifications.NtfyTopic
			if notifyDetail == "" {
				notifyKind, notifyDetail = statusWarn, "disabled (set notifications.ntfy_topic)"
			}
			fmt.Fprintln(out, renderStatusLine("Notifications", notifyKind, notifyDetail, colorize))
			fmt.Fprintln(out, renderStatusLine("History", statusInfo, yesNo(cfg.Archive.HistoryEnabled), colorize))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
