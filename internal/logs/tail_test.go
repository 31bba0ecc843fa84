package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"contentops/internal/logs"
)

const sample = `{"ts":"2026-10-01T10:00:00Z","level":"info","msg":"job claimed","component":"worker","output_id":"out-1","job_id":"j1"}
{"ts":"2026-10-01T10:00:01Z","level":"warn","msg":"backend slow","component":"handlers","output_id":"out-2"}
plain text line
{"ts":"2026-10-01T10:00:02Z","level":"error","msg":"render failed","component":"handlers","output_id":"out-1","attempt":2}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contentopsd.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailFilters(t *testing.T) {
	path := writeLog(t, sample)
	tests := []struct {
		name   string
		limit  int
		filter logs.Filter
		want   []string
	}{
		{"last two", 2, logs.Filter{}, []string{"plain text line", "render failed"}},
		{"by output", 0, logs.Filter{OutputID: "out-1"}, []string{"job claimed", "render failed"}},
		{"warn and above", 0, logs.Filter{MinLevel: "warn"}, []string{"backend slow", "render failed"}},
		{"by component", 1, logs.Filter{Component: "HANDLERS"}, []string{"render failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, offset, err := logs.Tail(path, tt.limit, tt.filter)
			if err != nil {
				t.Fatalf("Tail: %v", err)
			}
			if offset != int64(len(sample)) {
				t.Fatalf("offset = %d, want %d", offset, len(sample))
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %v", len(entries), tt.want)
			}
			for i, msg := range tt.want {
				if entries[i].Message != msg {
					t.Fatalf("entry %d = %q, want %q", i, entries[i].Message, msg)
				}
			}
		})
	}
}

func TestParseKeepsExtraFields(t *testing.T) {
	e := logs.Parse(`{"ts":"2026-10-01T10:00:02Z","level":"error","msg":"render failed","job_id":"j9","attempt":2}`)
	if e.Level != "error" || e.JobID != "j9" || e.Time.IsZero() {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if _, ok := e.Fields["msg"]; ok {
		t.Fatal("promoted keys should be removed from Fields")
	}
	if e.Fields["attempt"] != float64(2) {
		t.Fatalf("expected attempt field, got %v", e.Fields)
	}
}

func TestTailMissingFile(t *testing.T) {
	entries, offset, err := logs.Tail(filepath.Join(t.TempDir(), "absent.log"), 10, logs.Filter{})
	if err != nil || entries != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", entries, offset, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "{\"level\":\"INFO\",\"msg\":\"start\"}\n")
	_, offset, err := logs.Tail(path, 1, logs.Filter{})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 20*time.Millisecond, logs.Filter{}, func(e logs.Entry) {
			mu.Lock()
			seen = append(seen, e.Message)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	// A partial line is held back until its newline arrives.
	if _, err := f.WriteString(`{"level":"info","msg":"la`); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := f.WriteString("ter\"}\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "later" {
		t.Fatalf("unexpected follow output: %v", seen)
	}
}
