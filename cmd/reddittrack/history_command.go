package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reddittrack/internal/archive"
	"reddittrack/internal/post"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		priority   string
		sentiment  string
		community  string
		since      time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List posts recorded by previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := archive.Query{Limit: limit, Community: strings.TrimSpace(community)}
			var err error
			if query.Priority, err = parsePriority(priority); err != nil {
				return err
			}
			if query.Sentiment, err = parseSentiment(sentiment); err != nil {
				return err
			}
			if since > 0 {
				query.Since = time.Now().Add(-since)
			}

			store, err := openHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), query)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No posts recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CollectedOn,
					string(e.Priority),
					string(e.Sentiment),
					"r/" + e.Community,
					strconv.Itoa(e.Score),
					strconv.Itoa(e.CommentCount),
					truncateTitle(e.Title, 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				num(cols("Collected", "Priority", "Sentiment", "Community", "Score", "Comments", "Title"), "Score", "Comments"),
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum posts to list (0 for all)")
	cmd.Flags().StringVar(&priority, "priority", "", "Only posts with this priority (high, medium, low)")
	cmd.Flags().StringVar(&sentiment, "sentiment", "", "Only posts with this sentiment (positive, negative, neutral)")
	cmd.Flags().StringVar(&community, "community", "", "Only posts from this subreddit")
	cmd.Flags().DurationVar(&since, "since", 0, "Only posts collected within this duration (e.g. 72h)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")

	cmd.AddCommand(newHistoryStatsCommand(ctx))
	return cmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			totals, err := store.Totals(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, store.Path(), colorize))
			fmt.Fprintln(out, renderStatusLine("Posts", statusInfo, strconv.Itoa(totals.Posts), colorize))
			fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, strconv.Itoa(totals.Runs), colorize))
			last := "never"
			if !totals.LastRun.IsZero() {
				last = totals.LastRun.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, last, colorize))

			rows := [][]string{}
			for _, p := range []post.Priority{post.High, post.Medium, post.Low} {
				rows = append(rows, []string{"priority", string(p), strconv.Itoa(totals.ByPriority[p])})
			}
			sentiments := make([]string, 0, len(totals.BySentiment))
			for s := range totals.BySentiment {
				sentiments = append(sentiments, string(s))
			}
			sort.Strings(sentiments)
			for _, s := range sentiments {
				rows = append(rows, []string{"sentiment", s, strconv.Itoa(totals.BySentiment[post.Sentiment(s)])})
			}
			fmt.Fprintln(out, renderTable(num(cols("Group", "Value", "Posts"), "Posts"), rows))
			return nil
		},
	}
}

func openHistory(cmd *cobra.Command, ctx *commandContext) (*archive.HistoryStore, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Archive.HistoryEnabled {
		return nil, errors.New("history is disabled (archive.history_enabled = false)")
	}
	return archive.OpenHistory(cmd.Context(), cfg.HistoryDBPath())
}

func parsePriority(value string) (post.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "high":
		return post.High, nil
	case "medium":
		return post.Medium, nil
	case "low":
		return post.Low, nil
	default:
		return "", fmt.Errorf("unknown priority %q (want high, medium, or low)", value)
	}
}

func parseSentiment(value string) (post.Sentiment, error) {
	switch s := post.Sentiment(strings.ToLower(strings.TrimSpace(value))); s {
	case "", post.Positive, post.Negative, post.Neutral:
		return s, nil
	default:
		return "", fmt.Errorf("unknown sentiment %q (want positive, negative, or neutral)", value)
	}
}

func truncateTitle(title string, limit int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
