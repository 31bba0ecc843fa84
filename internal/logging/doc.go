// Package logging assembles structured slog loggers and formatting helpers used
// across contentops services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator and worker code
// can automatically tag log lines with output, submission, and job ids. The
// package also provides a no-op logger for tests and wiring code that cannot fail.
package logging
