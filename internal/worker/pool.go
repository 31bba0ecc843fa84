package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"contentops/internal/config"
	"contentops/internal/logging"
	"contentops/internal/queue"
	"contentops/internal/services"
)

const errorRetryInterval = 5 * time.Second

// JobQueue is the consumer side of the durable queue. *queue.Queue
// satisfies it.
type JobQueue interface {
	Claim(ctx context.Context, owner string, kinds ...queue.Kind) (*queue.Job, error)
	Heartbeat(ctx context.Context, id, owner string) error
	Complete(ctx context.Context, id, owner string) error
	Fail(ctx context.Context, job *queue.Job, owner string, cause error) (queue.Status, error)
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Handler processes one job. A nil error completes it; an error is recorded
// and retried or dead-lettered by the queue.
type Handler interface {
	Handle(ctx context.Context, job *queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *queue.Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *queue.Job) error { return f(ctx, job) }

// Options tune lane timing.
type Options struct {
	Lanes             int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	// Identity prefixes lease owners; defaults to host and pid.
	Identity string
}

// OptionsFromConfig reads the [workers] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Lanes:             cfg.Workers.Lanes,
		PollInterval:      cfg.Workers.PollIntervalDuration(),
		HeartbeatInterval: cfg.Workers.HeartbeatIntervalDuration(),
		HeartbeatTimeout:  cfg.Workers.HeartbeatTimeoutDuration(),
	}
}

// Pool runs lanes over a JobQueue.
type Pool struct {
	queue    JobQueue
	handler  Handler
	logger   *slog.Logger
	opts     Options
	identity string

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
	handled int64
}

// NewPool builds a pool that routes every claimed job to handler.
func NewPool(q JobQueue, handler Handler, logger *slog.Logger, opts Options) *Pool {
	if opts.Lanes <= 0 {
		opts.Lanes = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	identity := opts.Identity
	if identity == "" {
		host, _ := os.Hostname()
		identity = fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	return &Pool{
		queue:    q,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "worker"),
		opts:     opts,
		identity: identity,
	}
}

// Start launches the lanes.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.opts.Lanes)
	for i := 0; i < p.opts.Lanes; i++ {
		go p.runLane(runCtx, i)
	}
	p.logger.Info("worker pool started",
		logging.String(logging.FieldEventType, "worker_pool_started"),
		logging.Int("lanes", p.opts.Lanes))
	return nil
}

// Stop cancels the lanes and waits for in-flight jobs to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Status is a snapshot for the status endpoint.
type Status struct {
	Running bool
	Lanes   int
	Handled int64
	LastJob *queue.Job
	LastErr string
}

// Status reports pool state.
func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Status{Running: p.running, Lanes: p.opts.Lanes, Handled: p.handled, LastJob: p.lastJob}
	if p.lastErr != nil {
		s.LastErr = p.lastErr.Error()
	}
	return s
}

func (p *Pool) owner(lane int) string {
	return fmt.Sprintf("%s/lane-%d", p.identity, lane)
}

func (p *Pool) runLane(ctx context.Context, lane int) {
	defer p.wg.Done()
	owner := p.owner(lane)
	logger := p.logger.With(logging.String(logging.FieldLane, owner))
	ctx = services.WithLane(ctx, owner)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if lane == 0 {
			p.reclaim(ctx, logger)
		}

		processed, err := p.RunOnce(ctx, owner)
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			return
		case err != nil:
			p.setLastError(err)
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check database access"),
			)
			p.wait(ctx, errorRetryInterval)
		case !processed:
			p.wait(ctx, p.opts.PollInterval)
		}
	}
}

func (p *Pool) reclaim(ctx context.Context, logger *slog.Logger) {
	if p.opts.HeartbeatTimeout <= 0 {
		return
	}
	reclaimed, err := p.queue.ReclaimStale(ctx, time.Now().Add(-p.opts.HeartbeatTimeout))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check database access"),
			)
		}
		return
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale jobs",
			logging.String(logging.FieldEventType, "jobs_reclaimed"),
			logging.Int64("count", reclaimed))
	}
}

func (p *Pool) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RunOnce claims and processes at most one job as owner. It reports whether
// a job was processed.
func (p *Pool) RunOnce(ctx context.Context, owner string) (bool, error) {
	job, err := p.queue.Claim(ctx, owner)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	p.process(ctx, owner, job)
	return true, nil
}

func (p *Pool) process(ctx context.Context, owner string, job *queue.Job) {
	jobCtx, cancel := context.WithCancel(services.WithJob(ctx, job.ID, string(job.Kind)))
	defer cancel()
	if job.Payload.OutputID != "" {
		jobCtx = services.WithOutputID(jobCtx, job.Payload.OutputID)
	}
	if job.Payload.SubmissionID != "" {
		jobCtx = services.WithSubmissionID(jobCtx, job.Payload.SubmissionID)
	}
	logger := logging.WithContext(jobCtx, p.logger)
	logger.Debug("job claimed", logging.Int("attempt", job.Attempts))

	var hb sync.WaitGroup
	if p.opts.HeartbeatInterval > 0 {
		hb.Add(1)
		go p.heartbeat(jobCtx, cancel, &hb, job.ID, owner, logger)
	}

	start := time.Now()
	handleErr := p.safeHandle(jobCtx, job)
	cancel()
	hb.Wait()

	p.mu.Lock()
	p.handled++
	p.lastJob = job
	p.mu.Unlock()

	if handleErr == nil {
		if err := p.queue.Complete(ctx, job.ID, owner); err != nil {
			logging.WarnWithContext(logger, "job completion not recorded", "job_complete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job may run again after its lease expires"))
			return
		}
		logger.Info("job done",
			logging.String(logging.FieldEventType, "job_done"),
			logging.Duration("elapsed", time.Since(start)))
		return
	}

	p.setLastError(handleErr)
	status, err := p.queue.Fail(ctx, job, owner, handleErr)
	if err != nil {
		logging.ErrorWithContext(logger, "job failure not recorded", "job_fail_failed",
			logging.Error(err),
			logging.Any("handler_error", handleErr.Error()))
		return
	}
	attrs := []logging.Attr{
		logging.Error(handleErr),
		logging.String("next_status", string(status)),
		logging.Int("attempt", job.Attempts),
	}
	if status == queue.StatusDead {
		logging.ErrorWithContext(logger, "job dead-lettered", "job_dead",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect with `contentops jobs list --status dead`, then retry"))...)
		return
	}
	logging.WarnWithContext(logger, "job failed; will retry", "job_retry",
		append(attrs, logging.String(logging.FieldImpact, "job delayed by backoff"))...)
}

func (p *Pool) safeHandle(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler.Handle(ctx, job)
}

func (p *Pool) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}
