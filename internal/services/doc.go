// Package services defines shared utilities consumed by the orchestrator, the
// worker pool, and the external backend clients.
//
// Key responsibilities:
//   - Context helpers that stamp output, submission, and job identifiers plus
//     correlation ids for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the API map
//     failures to HTTP status codes and let workers decide whether to retry.
//
// Backend clients live in subpackages (llm, tts, avatar, captions).
package services
