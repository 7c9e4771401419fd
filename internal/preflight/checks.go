package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"reddittrack/internal/archive"
	"reddittrack/internal/config"
	"reddittrack/internal/ledger"
	"reddittrack/internal/llm"
	"reddittrack/internal/logging"
)

// MinFreeBytes is the free space the data directory must keep.
const MinFreeBytes = 50 << 20

// CheckCredentials verifies the configured transport can authenticate.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Reddit credentials"
	if cfg.Reddit.Transport == config.TransportFeed {
		return Result{Name: name, Passed: true, Detail: "not needed (feed transport)"}
	}
	if err := cfg.RequireCredentials(); err != nil {
		return Result{Name: name, Detail: "client id/secret missing"}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	avail := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s (%d MiB free)", path, avail>>20)
	if avail < minBytes {
		return Result{Name: name, Detail: detail + fmt.Sprintf(", need %d MiB", minBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckLedger opens the configured ledger and reads its size.
func CheckLedger(ctx context.Context, cfg *config.Config) Result {
	name := "Ledger (" + cfg.Ledger.Backend + ")"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	seen, err := ledger.Open(checkCtx, cfg, logging.NewNop())
	if seen != nil {
		defer seen.Close()
	}
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	stats, err := seen.Stats(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d ids)", stats.Location, stats.Count)}
}

// CheckPostgres verifies the optional Postgres sink accepts connections.
func CheckPostgres(ctx context.Context, dsn string) Result {
	const name = "Postgres archive"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sink, err := archive.OpenPostgres(checkCtx, dsn)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	_ = sink.Close()
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM, opts ...llm.Option) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts = append([]llm.Option{llm.WithRetry(1, 0, 0)}, opts...)
	client := llm.NewClient(llm.ConfigFromApp(cfg), opts...)
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && (statusErr.StatusCode == 401 || statusErr.StatusCode == 403) {
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
