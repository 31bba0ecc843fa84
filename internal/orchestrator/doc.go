// Package orchestrator owns every state change of submissions and outputs.
//
// It fans a submission out into one output per enabled kind and language,
// enqueues each output's first job, moves outputs through the lifecycle with
// compare-and-swap writes, and recomputes the submission's aggregate status
// after each change. The API, the CLI, the webhook reconciler and the worker
// pool all mutate records through it.
package orchestrator
