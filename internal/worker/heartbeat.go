package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"contentops/internal/logging"
	"contentops/internal/queue"
)

// heartbeat refreshes the job lease until ctx ends. Losing the lease cancels
// the job so the handler stops working on a job someone else now owns.
func (p *Pool) heartbeat(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup, jobID, owner string, logger *slog.Logger) {
	defer wg.Done()
	ticker := time.NewTicker(p.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := p.queue.Heartbeat(ctx, jobID, owner)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, queue.ErrLeaseLost):
				logging.WarnWithContext(logger, "job lease lost; abandoning job", "job_lease_lost",
					logging.String(logging.FieldImpact, "another worker owns the job now"))
				cancel()
				return
			default:
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
