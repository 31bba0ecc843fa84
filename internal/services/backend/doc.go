// Package backend is the JSON-over-HTTP transport shared by the generation
// backend clients (script writer, speech synthesis, avatar video, captions).
//
// Requests carry a bearer API key. HTTP 408/429/5xx responses, network
// timeouts and errors marked with MarkRetryable are retried with exponential
// backoff (base 1s, max 10s, up to 3 attempts by default), honouring
// Retry-After. Context cancellation aborts retries immediately. Final errors
// carry services.ErrUpstream so callers can classify them.
package backend
