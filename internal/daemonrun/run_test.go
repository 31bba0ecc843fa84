package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"contentops/internal/logging"
	"contentops/internal/testsupport"
)

func TestBuildWiresRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := Build(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	if rt.Store == nil || rt.Queue == nil || rt.Orchestrator == nil || rt.Reconciler == nil || rt.Handlers == nil {
		t.Fatalf("runtime not fully wired: %+v", rt)
	}
	if rt.Orchestrator.Store() != rt.Store {
		t.Fatal("orchestrator should share the runtime store")
	}
	counts, err := rt.Queue.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty queue, got %v", counts)
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := Build(nil, nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "contentopsd-a.log")
	second := filepath.Join(dir, "contentopsd-b.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, "contentopsd.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(content) != "contentopsd-b.log" {
		t.Fatalf("pointer resolves to %q", content)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "contentopsd.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(raw))); err != nil || pid != os.Getpid() {
		t.Fatalf("unexpected pid file %q", raw)
	}
}

func TestRunRejectsInvalidLogLevel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	err := Run(context.Background(), cfg, Options{LogLevel: "chatty"})
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected log level validation error, got %v", err)
	}
}
