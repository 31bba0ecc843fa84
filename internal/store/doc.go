// Package store persists articles, submissions, outputs, tags, and catalog
// assets.
//
// Every status change on an output is a compare-and-swap guarded by the
// expected current status (and, where relevant, the generation counter or the
// provider id), so concurrent webhook and worker deliveries can never both
// apply the same transition. Callers learn whether their write won from the
// boolean result.
package store
