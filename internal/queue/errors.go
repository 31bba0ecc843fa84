package queue

import (
	"time"

	"contentops/internal/services"
)

const maxRetryDelay = 10 * time.Minute

// FailureStatus maps a handler error to the status the job row should take
// after this attempt. Classified caller errors never succeed on retry and go
// straight to dead; everything else is requeued until attempts run out.
func FailureStatus(err error, attempts, maxAttempts int) Status {
	if !services.Retryable(err) {
		return StatusDead
	}
	if maxAttempts > 0 && attempts >= maxAttempts {
		return StatusDead
	}
	return StatusQueued
}

// RetryDelay returns the exponential backoff before attempt number attempts+1.
func RetryDelay(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
