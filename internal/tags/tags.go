// Package tags copies tags between the language variants of an article.
//
// ENGLISH is the canonical language. When a canonical submission completes its
// tags are pushed onto every already-completed sibling; when a sibling
// completes it pulls from a completed canonical submission. Only tags that
// were attached directly are copied, and only onto completed outputs of the
// same kind. Failures never affect the completion that triggered them.
package tags

import (
	"context"
	"log/slog"
	"time"

	"contentops/internal/language"
	"contentops/internal/logging"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/store"
	"contentops/internal/submission"
)

// deferredRetryDelay spaces the background retry after a failed inheritance.
const deferredRetryDelay = 30 * time.Second

// Engine runs tag inheritance.
type Engine struct {
	store  *store.Store
	queue  queue.Enqueuer
	logger *slog.Logger
}

// NewEngine wires the engine. q receives deferred retries and may be nil.
func NewEngine(st *store.Store, q queue.Enqueuer, logger *slog.Logger) *Engine {
	return &Engine{store: st, queue: q, logger: logging.NewComponentLogger(logger, "tags")}
}

// OnSubmissionCompleted runs inheritance for a newly completed submission.
// Errors are logged and a deferred inherit_tags job is queued; nothing is
// returned to the caller.
func (e *Engine) OnSubmissionCompleted(ctx context.Context, submissionID string) {
	copied, err := e.Inherit(ctx, submissionID)
	logger := e.logger.With(logging.String(logging.FieldSubmissionID, submissionID))
	if err == nil {
		if copied > 0 {
			logger.Info("tags inherited",
				logging.String(logging.FieldEventType, "tags_inherited"),
				logging.Int("copied", copied))
		}
		return
	}

	logging.WarnWithContext(logger, "tag inheritance failed", "tag_inheritance_failed",
		logging.String(logging.FieldErrorHint, "a deferred inherit_tags job will retry"),
		logging.String(logging.FieldImpact, "sibling outputs may be missing inherited tags"),
		logging.Error(err))
	if e.queue == nil {
		return
	}
	_, enqueueErr := e.queue.Enqueue(ctx, queue.Request{
		Kind:      queue.KindInheritTags,
		Payload:   queue.Payload{SubmissionID: submissionID},
		DedupeKey: string(queue.KindInheritTags) + ":" + submissionID,
		Delay:     deferredRetryDelay,
	})
	if enqueueErr != nil {
		logging.WarnWithContext(logger, "deferred tag inheritance not queued", "tag_inheritance_enqueue_failed",
			logging.String(logging.FieldImpact, "inherited tags must be repaired manually"),
			logging.Error(enqueueErr))
	}
}

// Inherit copies tags for the given completed submission and reports how many
// links were created. Running it again creates nothing new.
func (e *Engine) Inherit(ctx context.Context, submissionID string) (int, error) {
	sub, err := e.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return 0, err
	}
	if sub.Status != submission.StatusCompleted {
		return 0, nil
	}
	siblings, err := e.store.ListSubmissionsByArticle(ctx, sub.ArticleID)
	if err != nil {
		return 0, err
	}

	copied := 0
	if sub.Language.IsCanonical() {
		for _, sibling := range siblings {
			if sibling.ID == sub.ID || sibling.Language.IsCanonical() || sibling.Status != submission.StatusCompleted {
				continue
			}
			n, err := e.copySubmission(ctx, sub.ID, sibling.ID)
			copied += n
			if err != nil {
				return copied, err
			}
		}
		return copied, nil
	}

	source := latestCompletedCanonical(siblings)
	if source == nil {
		return 0, nil
	}
	return e.copySubmission(ctx, source.ID, sub.ID)
}

func latestCompletedCanonical(siblings []*submission.Submission) *submission.Submission {
	var best *submission.Submission
	for _, s := range siblings {
		if s.Language != language.Canonical || s.Status != submission.StatusCompleted {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	return best
}

func (e *Engine) copySubmission(ctx context.Context, sourceID, targetID string) (int, error) {
	sources, err := e.store.ListOutputsBySubmission(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	targets, err := e.store.ListOutputsBySubmission(ctx, targetID)
	if err != nil {
		return 0, err
	}
	byKind := make(map[output.Kind]*output.Output, len(targets))
	for _, t := range targets {
		byKind[t.Kind] = t
	}

	copied := 0
	for _, src := range sources {
		target, ok := byKind[src.Kind]
		if !ok || target.Status != output.StatusCompleted || src.Status != output.StatusCompleted {
			continue
		}
		n, err := e.CopyTags(ctx, src, target)
		copied += n
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

// CopyTags attaches source's directly attached tags to target as inherited
// tags. Tags target already has, however they got there, are skipped.
func (e *Engine) CopyTags(ctx context.Context, source, target *output.Output) (int, error) {
	sourceTags, err := e.store.ListOutputTags(ctx, source.ID)
	if err != nil {
		return 0, err
	}
	existing, err := e.store.ListOutputTags(ctx, target.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t.Tag.ID] = struct{}{}
	}

	copied := 0
	for _, t := range sourceTags {
		if t.IsInherited {
			continue
		}
		if _, ok := have[t.Tag.ID]; ok {
			continue
		}
		created, err := e.store.AttachTag(ctx, target.ID, t.Tag.ID, true, source.ID)
		if err != nil {
			return copied, err
		}
		if created {
			copied++
		}
		have[t.Tag.ID] = struct{}{}
	}
	return copied, nil
}
