// Package aggregate derives a submission's status from its outputs and writes
// it back, firing the completion hooks exactly once per completion.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/output"
	"contentops/internal/store"
	"contentops/internal/submission"
)

const recomputeAttempts = 3

// Aggregate maps output statuses to the submission status. It is pure.
func Aggregate(statuses []output.Status) submission.Status {
	if len(statuses) == 0 {
		return submission.StatusPending
	}
	var completed, failed, scriptReady, inFlight int
	for _, s := range statuses {
		switch s {
		case output.StatusCompleted:
			completed++
		case output.StatusFailed:
			failed++
		case output.StatusScriptReady:
			scriptReady++
		case output.StatusPending, output.StatusProcessing:
			inFlight++
		}
	}
	switch {
	case completed == len(statuses):
		return submission.StatusCompleted
	case inFlight > 0:
		return submission.StatusProcessing
	case failed == len(statuses):
		return submission.StatusFailed
	default:
		return submission.StatusPartialComplete
	}
}

// CompletionHook runs when a submission first reaches COMPLETED.
type CompletionHook interface {
	OnSubmissionCompleted(ctx context.Context, submissionID string)
}

// Recomputer writes aggregate statuses back to submissions.
type Recomputer struct {
	store    *store.Store
	hook     CompletionHook
	notifier notifications.Service
	logger   *slog.Logger
}

// NewRecomputer wires the aggregator. hook and notifier may be nil.
func NewRecomputer(st *store.Store, hook CompletionHook, notifier notifications.Service, logger *slog.Logger) *Recomputer {
	return &Recomputer{
		store:    st,
		hook:     hook,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "aggregate"),
	}
}

// Recompute loads the submission's outputs, aggregates them and stores the
// result with a compare-and-swap on the previous status. Only the caller whose
// swap moved the submission into COMPLETED runs the completion hook. An empty
// submission id is a no-op, which covers standalone outputs.
func (r *Recomputer) Recompute(ctx context.Context, submissionID string) (submission.Status, error) {
	if submissionID == "" {
		return "", nil
	}
	for attempt := 0; attempt < recomputeAttempts; attempt++ {
		sub, err := r.store.GetSubmission(ctx, submissionID)
		if err != nil {
			return "", err
		}
		outputs, err := r.store.ListOutputsBySubmission(ctx, submissionID)
		if err != nil {
			return "", err
		}
		statuses := make([]output.Status, len(outputs))
		completed := 0
		for i, o := range outputs {
			statuses[i] = o.Status
			if o.Status == output.StatusCompleted {
				completed++
			}
		}
		next := Aggregate(statuses)
		if next == sub.Status {
			return next, nil
		}

		moved, err := r.store.SetSubmissionStatus(ctx, submissionID, sub.Status, next)
		if err != nil {
			return "", err
		}
		if !moved {
			// A concurrent writer changed the status first; re-read and try again.
			continue
		}

		logger := r.logger.With(logging.String(logging.FieldSubmissionID, submissionID))
		logger.Info("submission status changed",
			logging.String(logging.FieldEventType, "submission_status_changed"),
			logging.String("from", string(sub.Status)),
			logging.String("to", string(next)))
		r.afterTransition(ctx, sub, next, completed, len(outputs))
		return next, nil
	}
	return "", fmt.Errorf("recompute submission %s: status kept changing", submissionID)
}

func (r *Recomputer) afterTransition(ctx context.Context, sub *submission.Submission, next submission.Status, completed, total int) {
	var event notifications.Event
	switch next {
	case submission.StatusCompleted:
		if r.hook != nil {
			r.hook.OnSubmissionCompleted(ctx, sub.ID)
		}
		event = notifications.EventSubmissionCompleted
	case submission.StatusPartialComplete:
		event = notifications.EventSubmissionPartial
	case submission.StatusFailed:
		event = notifications.EventSubmissionFailed
	default:
		return
	}
	if r.notifier == nil {
		return
	}
	title := sub.ArticleID
	if a, err := r.store.GetArticle(ctx, sub.ArticleID); err == nil {
		title = a.Title
	}
	payload := notifications.Payload{
		"title":     title,
		"language":  string(sub.Language),
		"completed": completed,
		"total":     total,
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.String(logging.FieldSubmissionID, sub.ID),
			logging.String(logging.FieldErrorHint, "check ntfy topic and connectivity"),
			logging.Error(err))
	}
}
