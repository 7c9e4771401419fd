package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reddittrack/internal/ledger"
	"reddittrack/internal/logging"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the seen-post ledger",
	}
	ledgerCmd.AddCommand(newLedgerStatsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerCheckCommand(ctx))
	return ledgerCmd
}

// openLedger refuses unreadable ledger state instead of reporting an empty
// ledger.
func openLedger(cmd *cobra.Command, ctx *commandContext) (ledger.Ledger, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	seen, err := ledger.Open(cmd.Context(), cfg, logging.NewNop())
	var loadErr *ledger.LoadError
	if errors.As(err, &loadErr) {
		seen.Close()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return seen, nil
}

func newLedgerStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger size and last update",
		RunE: func(cmd *cobra.Command, args []string) error {
			seen, err := openLedger(cmd, ctx)
			if err != nil {
				return err
			}
			defer seen.Close()

			stats, err := seen.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			updated := "never"
			if !stats.LastUpdated.IsZero() {
				updated = stats.LastUpdated.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, stats.Backend, colorize))
			fmt.Fprintln(out, renderStatusLine("Location", statusInfo, stats.Location, colorize))
			fmt.Fprintln(out, renderStatusLine("Seen posts", statusInfo, strconv.Itoa(stats.Count), colorize))
			fmt.Fprintln(out, renderStatusLine("Last updated", statusInfo, updated, colorize))
			return nil
		},
	}
}

func newLedgerCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <post-id>...",
		Short: "Report whether posts were already processed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seen, err := openLedger(cmd, ctx)
			if err != nil {
				return err
			}
			defer seen.Close()

			rows := make([][]string, 0, len(args))
			for _, id := range args {
				ok, err := seen.Contains(cmd.Context(), id)
				if err != nil {
					return err
				}
				rows = append(rows, []string{id, yesNo(ok)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cols("Post", "Seen"), rows))
			return nil
		},
	}
}
