// Package worker runs the job lanes of the daemon.
//
// Each lane claims one job at a time under a lease, refreshes the lease while
// the handler runs, and reports success or failure back to the queue, which
// applies backoff and dead-lettering. The first lane also returns jobs whose
// lease went stale to the queue.
//
// Handlers are idempotent: a job for an output that has moved on (another
// generation, or a status the job does not apply to) completes without
// touching anything.
package worker
