package testsupport

import (
	"context"
	"sync"

	"contentops/internal/queue"
)

// RecordingQueue is an in-memory queue.Enqueuer that records requests and
// applies dedupe keys the way the durable queue does for active jobs.
type RecordingQueue struct {
	mu       sync.Mutex
	Requests []queue.Request
	// Err, when set, fails every Enqueue call.
	Err error
	// FailKinds fails Enqueue only for the listed kinds.
	FailKinds map[queue.Kind]error
	active    map[string]struct{}
}

func (q *RecordingQueue) Enqueue(_ context.Context, req queue.Request) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return false, q.Err
	}
	if err := q.FailKinds[req.Kind]; err != nil {
		return false, err
	}
	if req.DedupeKey != "" {
		if q.active == nil {
			q.active = make(map[string]struct{})
		}
		if _, ok := q.active[req.DedupeKey]; ok {
			return false, nil
		}
		q.active[req.DedupeKey] = struct{}{}
	}
	q.Requests = append(q.Requests, req)
	return true, nil
}

// OfKind returns the recorded requests of kind.
func (q *RecordingQueue) OfKind(kind queue.Kind) []queue.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queue.Request
	for _, r := range q.Requests {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
