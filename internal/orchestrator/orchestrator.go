package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentops/internal/aggregate"
	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/services"
	"contentops/internal/store"
)

const dispatchBatch = 100

// Orchestrator coordinates submission and output state.
type Orchestrator struct {
	store     *store.Store
	queue     queue.Enqueuer
	recompute *aggregate.Recomputer
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time
}

// New wires an orchestrator. notifier may be nil.
func New(st *store.Store, q queue.Enqueuer, recomputer *aggregate.Recomputer, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Orchestrator{
		store:     st,
		queue:     q,
		recompute: recomputer,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the record store for read paths.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// GetOutput loads one output.
func (o *Orchestrator) GetOutput(ctx context.Context, outputID string) (*output.Output, error) {
	return o.store.GetOutput(ctx, outputID)
}

// Recompute refreshes a submission's aggregate status. Standalone outputs
// pass an empty id and nothing happens.
func (o *Orchestrator) Recompute(ctx context.Context, submissionID string) {
	if submissionID == "" || o.recompute == nil {
		return
	}
	if _, err := o.recompute.Recompute(ctx, submissionID); err != nil {
		logging.WarnWithContext(o.logger, "submission status recompute failed", "recompute_failed",
			logging.String(logging.FieldSubmissionID, submissionID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next output change recomputes again"),
			logging.String(logging.FieldImpact, "submission status may lag its outputs"),
		)
	}
}

// firstStageJob is the job that starts work on a fresh output.
func firstStageJob(kind output.Kind) queue.Kind {
	if kind.ScriptFirst() {
		return queue.KindGenerateScript
	}
	return queue.KindGenerateOutput
}

// regenerateJob picks the job that restarts work on a terminal output.
func regenerateJob(o *output.Output) queue.Kind {
	switch {
	case o.Kind.ScriptFirst() && o.HasScript():
		return queue.KindRenderMedia
	case o.Kind.ScriptFirst():
		return queue.KindGenerateScript
	default:
		return queue.KindGenerateOutput
	}
}

// JobRequest builds the deduplicated job for an output at its generation.
func JobRequest(kind queue.Kind, o *output.Output) queue.Request {
	return queue.Request{
		Kind: kind,
		Payload: queue.Payload{
			OutputID:       o.ID,
			SubmissionID:   o.SubmissionID,
			OrganizationID: o.OrganizationID,
			Generation:     o.Generation,
		},
		DedupeKey: queue.DedupeKey(kind, o.ID, o.Generation),
	}
}

// dispatch enqueues the output's first job and then moves it out of PENDING.
// A lost swap means a worker or a concurrent sweep got there first.
func (o *Orchestrator) dispatch(ctx context.Context, out *output.Output) error {
	kind := firstStageJob(out.Kind)
	if _, err := o.queue.Enqueue(ctx, JobRequest(kind, out)); err != nil {
		return fmt.Errorf("enqueue %s for output %s: %w", kind, out.ID, err)
	}
	if _, err := o.store.UpdateOutput(ctx, out.ID,
		store.OutputGuard{Status: output.StatusPending, Generation: out.Generation},
		output.StatusProcessing, store.OutputPatch{}); err != nil {
		return err
	}
	out.Status = output.StatusProcessing
	return nil
}

// schedule enqueues follow-on work for an output already moved to PROCESSING.
// When the enqueue fails the output is failed so it does not sit in
// PROCESSING with no job behind it, and the caller gets the enqueue error.
func (o *Orchestrator) schedule(ctx context.Context, kind queue.Kind, out *output.Output) error {
	_, err := o.queue.Enqueue(ctx, JobRequest(kind, out))
	if err == nil {
		return nil
	}
	logging.ErrorWithContext(o.logger, "job enqueue failed", "enqueue_failed",
		logging.String(logging.FieldOutputID, out.ID),
		logging.String(logging.FieldJobKind, string(kind)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database health, then regenerate the output"),
	)
	reason := fmt.Sprintf("could not schedule %s: %v", kind, err)
	if failErr := o.FailOutput(ctx, out.ID, out.Generation, reason); failErr != nil && !services.IsInvalidState(failErr) {
		return errors.Join(err, failErr)
	}
	return services.Wrap(services.ErrTransient, "orchestrator", "schedule", string(kind), err)
}

// DispatchPending enqueues first-stage jobs for outputs left PENDING for
// longer than olderThan, typically after an enqueue failure at creation.
func (o *Orchestrator) DispatchPending(ctx context.Context, olderThan time.Duration) (int, error) {
	pending, err := o.store.ListPendingOutputs(ctx, o.now().Add(-olderThan), dispatchBatch)
	if err != nil {
		return 0, err
	}
	var (
		dispatched int
		errs       []error
		touched    = make(map[string]struct{})
	)
	for _, out := range pending {
		if err := o.dispatch(ctx, out); err != nil {
			errs = append(errs, err)
			continue
		}
		dispatched++
		touched[out.SubmissionID] = struct{}{}
	}
	for id := range touched {
		o.Recompute(ctx, id)
	}
	if dispatched > 0 {
		o.logger.Info("dispatched pending outputs",
			logging.String(logging.FieldEventType, "pending_dispatched"),
			logging.Int("count", dispatched))
	}
	return dispatched, errors.Join(errs...)
}

// validateCustomization checks field formats and that every referenced
// catalog asset exists in the organization with the matching type.
func (o *Orchestrator) validateCustomization(ctx context.Context, organizationID string, c output.Customization) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, ref := range c.AssetRefs() {
		if _, err := o.store.GetOrgAsset(ctx, organizationID, ref.Type, ref.ID); err != nil {
			if services.IsNotFound(err) {
				return services.Wrap(services.ErrNotFound, "orchestrator", "customization",
					fmt.Sprintf("%s %q is not a %s in this organization", ref.Field, ref.ID, ref.Type), nil)
			}
			return err
		}
	}
	return nil
}

// ProviderRefs resolves the output's customization to backend references,
// keyed by customization field.
func (o *Orchestrator) ProviderRefs(ctx context.Context, out *output.Output) (map[string]string, error) {
	refs := make(map[string]string)
	for _, ref := range out.Customization.AssetRefs() {
		asset, err := o.store.GetOrgAsset(ctx, out.OrganizationID, ref.Type, ref.ID)
		if err != nil {
			return nil, err
		}
		refs[ref.Field] = asset.ProviderRef
	}
	return refs, nil
}

// lostSwap reports the state that made a guarded update miss.
func (o *Orchestrator) lostSwap(ctx context.Context, op, outputID string, want output.Status) error {
	current, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return err
	}
	return services.Wrap(services.ErrInvalidState, "orchestrator", op,
		fmt.Sprintf("output %s is %s at generation %d; expected %s", outputID, current.Status, current.Generation, want), nil)
}

func (o *Orchestrator) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("shutting down, notification dropped", logging.String("event", string(event)))
			return
		}
		o.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func requireText(op, field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrValidation, "orchestrator", op, field+" is required", nil)
	}
	return value, nil
}
