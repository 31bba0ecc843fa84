// Package generation adapts the external backends to one interface per
// output kind.
//
// Script-first kinds (podcast, video, interactive podcast) run in two steps:
// GenerateScript produces a reviewable script, and Generate renders media
// from the approved script. Audio and quiz run Generate directly. Generate
// either finishes synchronously with an asset URL and payload, or returns a
// provider id that a webhook or CheckStatus later resolves.
package generation
