package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"contentops/internal/services"
	"contentops/internal/services/backend"
)

func TestDoSendsBearerAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.URL.Path != "/v1/things" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["name"]})
	}))
	defer server.Close()

	client := backend.New(backend.Config{Name: "test", BaseURL: server.URL + "/", APIKey: "secret"})
	var out struct {
		Echo string `json:"echo"`
	}
	if err := client.Do(context.Background(), http.MethodPost, "/v1/things", map[string]string{"name": "x"}, &out); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if out.Echo != "x" {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := backend.New(backend.Config{BaseURL: server.URL},
		backend.WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if err := client.Do(context.Background(), http.MethodGet, "", nil, nil); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delays, got %v", slept)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad script", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := backend.New(backend.Config{Name: "avatar", BaseURL: server.URL}, backend.WithSleeper(func(time.Duration) {}))
	err := client.Do(context.Background(), http.MethodPost, "/v1/videos", map[string]string{}, nil)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status error in chain, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestDoRequiresBaseURL(t *testing.T) {
	client := backend.New(backend.Config{Name: "tts"})
	err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRetryHonoursMarkedErrors(t *testing.T) {
	client := backend.New(backend.Config{BaseURL: "http://unused"}, backend.WithSleeper(func(time.Duration) {}))
	attempts := 0
	err := client.Retry(context.Background(), "op", func() error {
		attempts++
		if attempts < 2 {
			return backend.MarkRetryable(errors.New("empty content"))
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Fatalf("expected success on second attempt, attempts=%d err=%v", attempts, err)
	}
}
