package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"contentops/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBackend(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"auth required still reachable", http.StatusUnauthorized, true},
		{"server error", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			if got := CheckBackend(context.Background(), "TTS", srv.URL); got.Passed != tt.want {
				t.Fatalf("Passed = %v (%s)", got.Passed, got.Detail)
			}
		})
	}
}

func TestCheckBackend_MissingURL(t *testing.T) {
	if CheckBackend(context.Background(), "TTS", " ").Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.LLM.BaseURL = srv.URL
	cfg.LLM.APIKey = "good-key"
	if got := CheckLLM(context.Background(), "LLM", &cfg); !got.Passed {
		t.Fatalf("expected pass, got: %s", got.Detail)
	}

	cfg.LLM.APIKey = "bad-key"
	if got := CheckLLM(context.Background(), "LLM", &cfg); got.Passed {
		t.Fatal("expected failure for bad key")
	}

	cfg.LLM.APIKey = ""
	if got := CheckLLM(context.Background(), "LLM", &cfg); got.Passed || got.Detail != "API key missing" {
		t.Fatalf("unexpected result for missing key: %+v", got)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckDatabase(t *testing.T) {
	if !CheckDatabase(context.Background(), fakePinger{}).Passed {
		t.Fatal("expected pass")
	}
	if CheckDatabase(context.Background(), fakePinger{err: errors.New("connection refused")}).Passed {
		t.Fatal("expected failure")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.LLM = config.LLM{}
	cfg.Webhooks.VideoSecret = "v"

	results := RunAll(context.Background(), &cfg, fakePinger{})
	// data dir, log dir, database, two webhook secrets
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Captions webhook secret" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesConfiguredBackends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.LLM = config.LLM{}
	cfg.Avatar.BaseURL = srv.URL

	found := false
	for _, r := range RunAll(context.Background(), &cfg, nil) {
		if r.Name == "Avatar backend" {
			found = true
			if !r.Passed {
				t.Errorf("avatar check failed: %s", r.Detail)
			}
		}
		if r.Name == "TTS backend" || r.Name == "Database" {
			t.Errorf("unexpected check %q", r.Name)
		}
	}
	if !found {
		t.Fatal("expected avatar check in results")
	}
}
