// Package output defines the unified Output record: one generation unit per
// (submission, media kind), its status vocabulary, the legal lifecycle edges,
// the kind-specific payload union, and the rendering customization accepted at
// review time.
//
// All five media kinds share one state machine. Kind only decides whether the
// SCRIPT_READY review gate applies and which payload shape is stored.
package output
