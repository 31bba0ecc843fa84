package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n\n[api]\nbind = \"127.0.0.1:0\"\n",
		filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func runJSON(t *testing.T, env *cliTestEnv, target any, args ...string) {
	t.Helper()
	out, _, err := runCLI(t, env, append([]string{"--json"}, args...)...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	if err := json.Unmarshal([]byte(out), target); err != nil {
		t.Fatalf("decode %v output %q: %v", args, out, err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "api token is empty")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestArticleSubmitAndInspect(t *testing.T) {
	env := setupCLITestEnv(t)

	var article struct{ ID, Title string }
	runJSON(t, env, &article, "article", "add", "--org", "org-1",
		"--html", "<html><head><title>Rate cut</title></head><body><p>The bank cut rates.</p></body></html>")
	if article.ID == "" || article.Title != "Rate cut" {
		t.Fatalf("unexpected article: %+v", article)
	}

	var subs []struct{ ID, Language, Status string }
	runJSON(t, env, &subs, "submit", article.ID, "--org", "org-1", "-l", "en", "-l", "hi",
		"--skip", "podcast", "--skip", "video", "--skip", "interactive-podcast")
	if len(subs) != 2 {
		t.Fatalf("expected two submissions, got %+v", subs)
	}
	if subs[0].Language != "ENGLISH" || subs[1].Language != "HINDI" {
		t.Fatalf("unexpected languages: %+v", subs)
	}

	out, _, err := runCLI(t, env, "submission", "show", subs[0].ID)
	if err != nil {
		t.Fatalf("submission show: %v", err)
	}
	requireContains(t, out, "Language: ENGLISH")
	requireContains(t, out, "audio")
	requireContains(t, out, "quiz")

	out, _, err = runCLI(t, env, "jobs", "list", "--kind", "generate_output")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	if got := strings.Count(out, "generate_output"); got != 4 {
		t.Fatalf("expected 4 generate_output jobs, got %d in %q", got, out)
	}

	out, _, err = runCLI(t, env, "submissions", "--org", "org-1", "-l", "hindi")
	if err != nil {
		t.Fatalf("submissions: %v", err)
	}
	requireContains(t, out, subs[1].ID)
	if strings.Contains(out, subs[0].ID) {
		t.Fatalf("language filter leaked ENGLISH submission: %q", out)
	}

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "PROCESSING")
	requireContains(t, out, "queued")
}

func TestSubmitRejectsUnknownMediaType(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "submit", "missing", "--skip", "hologram")
	if err == nil || !strings.Contains(err.Error(), "hologram") {
		t.Fatalf("expected unknown media type error, got %v", err)
	}
}

func TestOutputCommandsReportInvalidState(t *testing.T) {
	env := setupCLITestEnv(t)
	var article struct{ ID string }
	runJSON(t, env, &article, "article", "add", "--org", "org-1", "--title", "T", "--body", "B")
	var subs []struct{ ID string }
	runJSON(t, env, &subs, "submit", article.ID, "--skip", "podcast,video,quiz,interactive_podcast")

	var view struct {
		Outputs []struct{ ID, Kind string }
	}
	runJSON(t, env, &view, "submission", "show", subs[0].ID)
	if len(view.Outputs) != 1 || view.Outputs[0].Kind != "audio" {
		t.Fatalf("unexpected outputs: %+v", view.Outputs)
	}

	_, _, err := runCLI(t, env, "output", "approve", view.Outputs[0].ID)
	if err == nil {
		t.Fatal("expected approve of an unfinished output to fail")
	}
	_, _, err = runCLI(t, env, "output", "generate", view.Outputs[0].ID)
	if err == nil || !strings.Contains(err.Error(), "SCRIPT_READY") {
		t.Fatalf("expected SCRIPT_READY error, got %v", err)
	}
}

func TestCatalogImportAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "catalog.yaml")
	content := `organization_id: org-1
assets:
  - type: voice
    name: Narrator
    provider_ref: voice-123
  - type: character
    name: Anchor
    provider_ref: char-9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, _, err := runCLI(t, env, "catalog", "import", path)
	if err != nil {
		t.Fatalf("catalog import: %v", err)
	}
	requireContains(t, out, "Imported 2 asset(s)")

	out, _, err = runCLI(t, env, "catalog", "list", "--org", "org-1")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Narrator")
	requireContains(t, out, "char-9")
}

func TestJobsRetryWithNothingDead(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "jobs", "retry")
	if err != nil {
		t.Fatalf("jobs retry: %v", err)
	}
	requireContains(t, out, "Requeued 0 job(s)")
}

func TestLogsFiltersByOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `{"ts":"2026-10-01T10:00:00Z","level":"info","msg":"job claimed","component":"worker","output_id":"out-1"}
{"ts":"2026-10-01T10:00:01Z","level":"info","msg":"other work","component":"worker","output_id":"out-2"}
`
	if err := os.WriteFile(filepath.Join(logDir, "contentopsd.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "--output", "out-1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "INFO worker [out-1]: job claimed")
	if strings.Contains(out, "other work") {
		t.Fatalf("filter leaked: %q", out)
	}
}
