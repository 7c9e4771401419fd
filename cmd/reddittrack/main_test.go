package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <author><name>/u/alice</name></author>
    <content type="html">&lt;div class="md"&gt;&lt;p&gt;The router is broken since the update&lt;/p&gt;&lt;/div&gt;</content>
    <id>t3_abc123</id>
    <link href="https://www.reddit.com/r/techsupport/comments/abc123/router_broken/"/>
    <published>2026-10-18T09:30:00+00:00</published>
    <title>Router broken after update</title>
  </entry>
  <entry>
    <author><name>/u/bob</name></author>
    <content type="html">&lt;p&gt;Look at my cable management&lt;/p&gt;</content>
    <id>t3_def456</id>
    <link href="https://www.reddit.com/r/techsupport/comments/def456/desk/"/>
    <published>2026-10-18T08:30:00+00:00</published>
    <title>Desk setup</title>
  </entry>
</feed>`

type cliTestEnv struct {
	configPath string
	dataDir    string
	reportDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("NTFY_TOPIC", "")
	t.Setenv("REDDITTRACK_POSTGRES_DSN", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, feedFixture)
	}))
	t.Cleanup(server.Close)

	base := t.TempDir()
	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		reportDir:  filepath.Join(base, "reports"),
	}
	writeTestConfig(t, env.configPath, fmt.Sprintf(`
[reddit]
transport = "feed"
feed_base_url = %q

[collection]
subreddits = ["techsupport"]
keywords = ["broken"]
post_limit = 25

[pacing]
enabled = false

[paths]
data_dir = %q
report_dir = %q
log_dir = %q
`, server.URL, env.dataDir, env.reportDir, filepath.Join(base, "logs")))
	return env
}

func writeTestConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestRunEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "run", "--skip-checks", "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary summaryView
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.New != 1 || summary.Analyzed != 1 {
		t.Fatalf("expected one new post, got %+v", summary)
	}
	if !strings.HasPrefix(summary.ReportPath, env.reportDir) {
		t.Fatalf("report outside report dir: %s", summary.ReportPath)
	}
	if _, err := os.Stat(summary.ReportPath); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if len(summary.Communities) != 1 || summary.Communities[0].Community != "techsupport" {
		t.Fatalf("unexpected communities: %+v", summary.Communities)
	}

	out, _, err = runCLI(t, env, "ledger", "check", "abc123", "def456")
	if err != nil {
		t.Fatalf("ledger check: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "yes")
	requireContains(t, out, "no")

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Router broken after update")

	out, _, err = runCLI(t, env, "run", "--skip-checks")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "New posts")
	requireContains(t, out, "[INFO] 0")
}

func TestHistoryRejectsUnknownPriority(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "history", "--priority", "urgent"); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestLedgerStatsOnFreshInstall(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "ledger", "stats")
	if err != nil {
		t.Fatalf("ledger stats: %v", err)
	}
	requireContains(t, out, "file")
	requireContains(t, out, "never")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestCheckListsDirectories(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, _ := runCLI(t, env, "check")
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "Reddit credentials:")
	requireContains(t, out, "not needed (feed transport)")
}

func TestLogsShowsRunOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "run", "--skip-checks"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := runCLI(t, env, "logs", "-n", "200")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "run completed")
}
