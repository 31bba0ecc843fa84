package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"contentops/internal/config"
	"contentops/internal/httpapi"
	"contentops/internal/logging"
	"contentops/internal/orchestrator"
	"contentops/internal/queue"
	"contentops/internal/worker"
)

// Finished jobs are kept this long for inspection before the sweep purges them.
const finishedJobRetention = 7 * 24 * time.Hour

// Deps are the long-lived services the daemon drives.
type Deps struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Queue        *queue.Queue
	Pool         *worker.Pool
	API          *httpapi.Server
	Logger       *slog.Logger
}

// Daemon coordinates the worker pool, the HTTP listener and the pending
// sweep, and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	queue  *queue.Queue
	pool   *worker.Pool
	api    *httpapi.Server
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workers      worker.Status
	APIAddress   string
	LockFilePath string
	DatabaseDSN  string
}

// New constructs a daemon with initialized dependencies.
func New(deps Deps) (*Daemon, error) {
	if deps.Config == nil || deps.Orchestrator == nil || deps.Queue == nil || deps.Pool == nil || deps.API == nil {
		return nil, errors.New("daemon requires config, orchestrator, queue, worker pool, and api server")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := deps.Config.LockPath()
	return &Daemon{
		cfg:      deps.Config,
		orch:     deps.Orchestrator,
		queue:    deps.Queue,
		pool:     deps.Pool,
		api:      deps.API,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, then launches the API, the worker lanes
// and the pending sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another contentops daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.Start(runCtx, d.cfg.API.Bind); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		d.api.Stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workers: %w", err)
	}
	d.cancel = cancel

	if interval := d.cfg.Workers.PendingSweepIntervalDuration(); interval > 0 {
		d.wg.Add(1)
		go d.sweepLoop(runCtx, interval)
	}

	if strings.TrimSpace(d.cfg.API.Token) == "" {
		d.logger.Warn("api token not configured; operator endpoints are unauthenticated",
			logging.String(logging.FieldEventType, "api_token_missing"),
			logging.String(logging.FieldErrorHint, "set api.token or CONTENTOPS_API_TOKEN"),
			logging.String(logging.FieldImpact, "anyone reaching the listener can create and approve content"))
	}

	d.running.Store(true)
	d.logger.Info("contentops daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("api_address", d.api.Addr()),
		logging.Int("lanes", d.pool.Status().Lanes))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.pool.Stop()
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("contentops daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Workers:      d.pool.Status(),
		APIAddress:   d.api.Addr(),
		LockFilePath: d.lockPath,
		DatabaseDSN:  d.cfg.DatabaseDSN(),
	}
}

func (d *Daemon) sweepLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(d.logger, "pending sweep failed", "pending_sweep_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check database connectivity"),
					logging.String(logging.FieldImpact, "stranded outputs wait for the next sweep"))
			}
		}
	}
}

// Sweep re-dispatches outputs stranded in PENDING and purges old finished
// jobs. It returns the number of outputs dispatched.
func (d *Daemon) Sweep(ctx context.Context) (int, error) {
	dispatched, dispatchErr := d.orch.DispatchPending(ctx, d.cfg.Workers.PendingGraceDuration())
	purged, purgeErr := d.queue.PurgeFinished(ctx, time.Now().Add(-finishedJobRetention))
	if purged > 0 {
		d.logger.Debug("purged finished jobs", logging.Int64("count", purged))
	}
	return dispatched, errors.Join(dispatchErr, purgeErr)
}
