package preflight

import (
	"context"

	"reddittrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks for optional backends only run when that backend is selected.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCredentials(cfg),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Report directory", cfg.Paths.ReportDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Data disk space", cfg.Paths.DataDir, MinFreeBytes),
		CheckLedger(ctx, cfg),
	}

	if cfg.Archive.PostgresDSN != "" {
		results = append(results, CheckPostgres(ctx, cfg.Archive.PostgresDSN))
	}

	if cfg.Classification.Scorer == config.ScorerLLM {
		results = append(results, CheckLLM(ctx, "Sentiment LLM", cfg.LLM))
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
