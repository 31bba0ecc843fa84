// Package queue persists background jobs in the shared database and exposes
// helpers for driving their lifecycle.
//
// Delivery is at-least-once: a job is claimed under a lease that workers keep
// alive with heartbeats, and leases that stop beating are reclaimed and the
// job handed to another worker. Handlers must therefore be idempotent; the
// generation carried in each payload lets them drop work that a newer request
// has superseded.
//
// Jobs with a dedupe key are unique among queued and running jobs, so
// enqueueing the same logical work twice is a no-op. Once a job finishes or
// dies its key is free again.
package queue
