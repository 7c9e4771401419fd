package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reddittrack/internal/logging"
	"reddittrack/internal/scheduler"
	"reddittrack/internal/tracker"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run every day at schedule.at until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			hour, minute, err := cfg.ScheduleClock()
			if err != nil {
				return err
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			if err := requirePreflight(cmd.Context(), cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}

			tr, err := tracker.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer tr.Close()

			job := func(jobCtx context.Context) error {
				summary, err := tr.Run(jobCtx)
				if errors.Is(err, tracker.ErrRunInProgress) {
					logging.WarnWithContext(logger, "skipping scheduled run; another run holds the lock", "run_lock_busy",
						logging.String("lock", cfg.LockPath()),
						logging.String(logging.FieldErrorHint, "wait for the manual run to finish"),
						logging.String(logging.FieldImpact, "this occurrence is skipped"),
					)
					return nil
				}
				if err != nil {
					return err
				}
				logger.Info("report ready", logging.String("path", summary.ReportPath))
				return nil
			}

			daily := scheduler.Daily{Hour: hour, Minute: minute, Location: time.Local}
			logger.Info("scheduler started", logging.String("at", daily.String()))
			s := scheduler.New(daily, job,
				scheduler.WithLogger(logging.NewComponentLogger(logger, "scheduler")),
				scheduler.WithRunOnStart(runNow || cfg.Schedule.RunOnStart),
			)
			return s.Loop(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "Run once immediately before waiting for the schedule")
	return cmd
}
