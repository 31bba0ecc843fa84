// Package webhook reconciles completion callbacks from the avatar and captions
// backends with the outputs waiting on them.
//
// A callback is matched with one indexed lookup on the provider (or follow-up)
// id among PROCESSING outputs. When nothing matches, or the match cannot be
// finished, a resolve_provider_asset job is queued so the worker pool can poll
// the backend and finish the output later.
package webhook
