package daemon_test

import (
	"context"
	"testing"
	"time"

	"contentops/internal/aggregate"
	"contentops/internal/config"
	"contentops/internal/daemon"
	"contentops/internal/httpapi"
	"contentops/internal/language"
	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/store"
	"contentops/internal/submission"
	"contentops/internal/tags"
	"contentops/internal/testsupport"
	"contentops/internal/worker"
)

type fixture struct {
	cfg    *config.Config
	store  *store.Store
	queue  *queue.Queue
	daemon *daemon.Daemon
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	db := testsupport.MustOpenDB(t, cfg)
	st := store.New(db)
	q := queue.NewFromConfig(db, cfg)
	logger := logging.NewNop()
	notifier := &notifications.Recorder{}
	engine := tags.NewEngine(st, q, logger)
	orch := orchestrator.New(st, q, aggregate.NewRecomputer(st, engine, notifier, logger), notifier, logger)

	// Jobs are left queued so tests can inspect what the sweep enqueued.
	pool := worker.NewPool(q, worker.HandlerFunc(func(context.Context, *queue.Job) error { return nil }), logger,
		worker.Options{Lanes: 1, PollInterval: time.Hour})
	api := httpapi.New(httpapi.Deps{Orchestrator: orch, Jobs: q, Workers: pool, Logger: logger})

	d, err := daemon.New(daemon.Deps{Config: cfg, Orchestrator: orch, Queue: q, Pool: pool, API: api, Logger: logger})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &fixture{cfg: cfg, store: st, queue: q, daemon: d}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(daemon.Deps{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := f.daemon.Status()
	if !status.Running || !status.Workers.Running {
		t.Fatalf("expected daemon and workers running, got %+v", status)
	}
	if status.APIAddress == "" {
		t.Fatal("expected api address once started")
	}
	if status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	// Second start should fail
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	status = f.daemon.Status()
	if status.Running || status.Workers.Running {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}
}

func TestSecondInstanceCannotTakeLock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	other := newFixture(t, func(cfg *config.Config) {
		cfg.Paths.DataDir = f.cfg.Paths.DataDir
	})
	if err := other.daemon.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestSweepDispatchesStrandedOutputs(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Workers.PendingGrace = 0
	})
	ctx := context.Background()
	a := testsupport.NewArticle(t, f.store, "org-1", "Rates")
	_, outputs := testsupport.NewSubmission(t, f.store, a, language.Canonical, submission.Flags{Audio: true}, output.StatusPending)
	time.Sleep(10 * time.Millisecond)

	dispatched, err := f.daemon.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if dispatched != len(outputs) {
		t.Fatalf("dispatched %d, want %d", dispatched, len(outputs))
	}
	jobs, err := f.queue.List(ctx, queue.Filter{Kinds: []queue.Kind{queue.KindGenerateOutput}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != len(outputs) || jobs[0].Payload.OutputID != outputs[0].ID {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}

	dispatched, err = f.daemon.Sweep(ctx)
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if dispatched != 0 {
		t.Fatalf("expected nothing left to dispatch, got %d", dispatched)
	}
}
