package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneLogs deletes daily log files in dir whose modification time is more
// than retentionDays before now, and returns how many went. The file for now's
// day is never touched. retentionDays <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	current := DailyLogPath(dir, now)

	removed := 0
	for _, path := range matches {
		if path == current {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log file could not be removed", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of log_dir"),
				String(FieldImpact, "disk usage grows until removed by hand"),
			)
			continue
		}
		removed++
		logger.Debug("log pruned", String("path", path))
	}
	return removed
}
