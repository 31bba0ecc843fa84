package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"contentops/internal/logging"
	"contentops/internal/queue"
	"contentops/internal/services"
	"contentops/internal/testsupport"
	"contentops/internal/worker"
)

func newQueue(t *testing.T) *queue.Queue {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return queue.New(testsupport.MustOpenDB(t, cfg), queue.Options{MaxAttempts: 3, RetryBaseDelay: time.Hour})
}

func enqueue(t *testing.T, q *queue.Queue, kind queue.Kind, outputID string) {
	t.Helper()
	if _, err := q.Enqueue(context.Background(), queue.Request{Kind: kind, Payload: queue.Payload{OutputID: outputID}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func jobFor(t *testing.T, q *queue.Queue, outputID string) *queue.Job {
	t.Helper()
	jobs, err := q.List(context.Background(), queue.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, j := range jobs {
		if j.Payload.OutputID == outputID {
			return j
		}
	}
	t.Fatalf("no job for %s", outputID)
	return nil
}

func TestRunOnceRecordsOutcome(t *testing.T) {
	q := newQueue(t)
	enqueue(t, q, queue.KindGenerateOutput, "ok")
	enqueue(t, q, queue.KindGenerateOutput, "flaky")
	enqueue(t, q, queue.KindGenerateOutput, "invalid")
	enqueue(t, q, queue.KindGenerateOutput, "panics")

	handler := worker.HandlerFunc(func(_ context.Context, job *queue.Job) error {
		switch job.Payload.OutputID {
		case "flaky":
			return errors.New("connection reset")
		case "invalid":
			return services.Wrap(services.ErrValidation, "test", "handle", "bad payload", nil)
		case "panics":
			panic("boom")
		}
		return nil
	})
	pool := worker.NewPool(q, handler, logging.NewNop(), worker.Options{Identity: "test"})

	for i := 0; i < 4; i++ {
		processed, err := pool.RunOnce(context.Background(), "test/lane-0")
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !processed {
			t.Fatalf("expected a job on pass %d", i)
		}
	}
	if processed, _ := pool.RunOnce(context.Background(), "test/lane-0"); processed {
		t.Fatal("failed jobs must wait out their backoff")
	}

	tests := []struct {
		outputID string
		want     queue.Status
	}{
		{"ok", queue.StatusDone},
		{"flaky", queue.StatusQueued},
		{"invalid", queue.StatusDead},
		{"panics", queue.StatusQueued},
	}
	for _, tt := range tests {
		if got := jobFor(t, q, tt.outputID); got.Status != tt.want {
			t.Errorf("%s: status = %s, want %s (last error %q)", tt.outputID, got.Status, tt.want, got.LastError)
		}
	}
	if status := pool.Status(); status.Handled != 4 || status.LastErr == "" {
		t.Fatalf("unexpected pool status: %+v", status)
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	q := newQueue(t)
	pool := worker.NewPool(q, worker.HandlerFunc(func(context.Context, *queue.Job) error {
		t.Fatal("handler called on empty queue")
		return nil
	}), logging.NewNop(), worker.Options{})
	processed, err := pool.RunOnce(context.Background(), "solo")
	if err != nil || processed {
		t.Fatalf("RunOnce = %v, %v", processed, err)
	}
}

func TestStartStopDrainsQueue(t *testing.T) {
	q := newQueue(t)
	for _, id := range []string{"a", "b", "c"} {
		enqueue(t, q, queue.KindInheritTags, id)
	}
	done := make(chan string, 3)
	pool := worker.NewPool(q, worker.HandlerFunc(func(_ context.Context, job *queue.Job) error {
		done <- job.Payload.OutputID
		return nil
	}), logging.NewNop(), worker.Options{Lanes: 2, PollInterval: 10 * time.Millisecond, Identity: "test"})

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := pool.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	seen := map[string]bool{}
	timeout := time.After(5 * time.Second)
	for len(seen) < 3 {
		select {
		case id := <-done:
			seen[id] = true
		case <-timeout:
			t.Fatalf("only handled %v", seen)
		}
	}
	pool.Stop()
	if pool.Status().Running {
		t.Fatal("pool still running after Stop")
	}
}
