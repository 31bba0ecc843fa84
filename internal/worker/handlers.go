package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentops/internal/generation"
	"contentops/internal/language"
	"contentops/internal/logging"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/services"
	"contentops/internal/services/captions"
	"contentops/internal/store"
	"contentops/internal/tags"
	"contentops/internal/webhook"
)

// renderCheckDelay is how long after an asynchronous render starts the
// worker polls the backend in case the completion callback never arrives.
const renderCheckDelay = 15 * time.Minute

// CaptionsPoller reads post-processing job state. *captions.Client satisfies it.
type CaptionsPoller interface {
	Status(ctx context.Context, jobID string) (captions.JobStatus, error)
}

// Handlers routes jobs to the generation pipeline.
type Handlers struct {
	orch          *orchestrator.Orchestrator
	store         *store.Store
	registry      *generation.Registry
	reconciler    *webhook.Reconciler
	tags          *tags.Engine
	queue         queue.Enqueuer
	captions      CaptionsPoller
	publicBaseURL string
	logger        *slog.Logger
}

// HandlerDeps collects the collaborators of Handlers.
type HandlerDeps struct {
	Orchestrator  *orchestrator.Orchestrator
	Registry      *generation.Registry
	Reconciler    *webhook.Reconciler
	Tags          *tags.Engine
	Queue         queue.Enqueuer
	Captions      CaptionsPoller
	PublicBaseURL string
	Logger        *slog.Logger
}

// NewHandlers wires the job handlers.
func NewHandlers(deps HandlerDeps) *Handlers {
	return &Handlers{
		orch:          deps.Orchestrator,
		store:         deps.Orchestrator.Store(),
		registry:      deps.Registry,
		reconciler:    deps.Reconciler,
		tags:          deps.Tags,
		queue:         deps.Queue,
		captions:      deps.Captions,
		publicBaseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
		logger:        logging.NewComponentLogger(deps.Logger, "handlers"),
	}
}

// Handle dispatches on the job kind.
func (h *Handlers) Handle(ctx context.Context, job *queue.Job) error {
	switch job.Kind {
	case queue.KindGenerateOutput:
		return h.generateOutput(ctx, job.Payload)
	case queue.KindGenerateScript:
		return h.generateScript(ctx, job.Payload)
	case queue.KindRenderMedia:
		return h.renderMedia(ctx, job.Payload)
	case queue.KindResolveProviderAsset:
		return h.resolveProviderAsset(ctx, job.Payload)
	case queue.KindInheritTags:
		_, err := h.tags.Inherit(ctx, job.Payload.SubmissionID)
		return err
	default:
		return services.Wrap(services.ErrValidation, "worker", "dispatch", fmt.Sprintf("unknown job kind %q", job.Kind), nil)
	}
}

// claimOutput loads the job's output and checks it is still the work the job
// was queued for. A nil output means the job is stale and completes as-is.
// First-stage jobs may find the output still PENDING when they beat the
// dispatcher's status write; they take it to PROCESSING themselves.
func (h *Handlers) claimOutput(ctx context.Context, p queue.Payload, allowPending bool) (*output.Output, error) {
	out, err := h.store.GetOutput(ctx, p.OutputID)
	if services.IsNotFound(err) {
		h.skip(ctx, p, "output no longer exists")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Generation != p.Generation {
		h.skip(ctx, p, fmt.Sprintf("stale generation %d (output is at %d)", p.Generation, out.Generation))
		return nil, nil
	}
	if out.Status == output.StatusPending && allowPending {
		if _, err := h.store.UpdateOutput(ctx, out.ID,
			store.OutputGuard{Status: output.StatusPending, Generation: out.Generation},
			output.StatusProcessing, store.OutputPatch{}); err != nil {
			return nil, err
		}
		if out, err = h.store.GetOutput(ctx, out.ID); err != nil {
			return nil, err
		}
	}
	if out.Status != output.StatusProcessing {
		h.skip(ctx, p, fmt.Sprintf("output is %s", out.Status))
		return nil, nil
	}
	return out, nil
}

func (h *Handlers) skip(ctx context.Context, p queue.Payload, reason string) {
	logging.WithContext(ctx, h.logger).Info("job skipped",
		logging.String(logging.FieldEventType, "job_stale"),
		logging.String(logging.FieldOutputID, p.OutputID),
		logging.String("reason", reason))
}

// request assembles what an adapter needs for out.
func (h *Handlers) request(ctx context.Context, out *output.Output) (generation.Request, error) {
	req := generation.Request{
		Output:      out,
		Language:    language.Canonical,
		Script:      out.Script,
		CallbackURL: h.publicBaseURL + "/webhooks/video",
	}
	if vp, ok := out.Payload.(output.VideoPayload); ok {
		req.Title = vp.Title
	}
	if !out.Standalone() {
		sub, err := h.store.GetSubmission(ctx, out.SubmissionID)
		if err != nil {
			return req, err
		}
		req.Language = sub.Language
		if req.Article, err = h.store.GetArticle(ctx, sub.ArticleID); err != nil {
			return req, err
		}
	}
	refs, err := h.orch.ProviderRefs(ctx, out)
	if err != nil {
		return req, err
	}
	req.ProviderRefs = refs
	return req, nil
}

// fail writes an adapter error onto the output. Only a failure to record it
// is returned, so the job retries exactly when the output was left untouched.
func (h *Handlers) fail(ctx context.Context, out *output.Output, cause error) error {
	err := h.orch.FailOutput(ctx, out.ID, out.Generation, services.Details(cause))
	if err != nil && services.IsInvalidState(err) {
		return nil
	}
	return err
}

func (h *Handlers) adapterFor(out *output.Output) (generation.Adapter, error) {
	return h.registry.Get(out.Kind)
}

func (h *Handlers) generateOutput(ctx context.Context, p queue.Payload) error {
	out, err := h.claimOutput(ctx, p, true)
	if err != nil || out == nil {
		return err
	}
	if out.Kind.ScriptFirst() {
		return h.fail(ctx, out, services.Wrap(services.ErrInvalidState, "worker", "generate output",
			fmt.Sprintf("%s requires script review", out.Kind), nil))
	}
	return h.generate(ctx, out)
}

func (h *Handlers) generateScript(ctx context.Context, p queue.Payload) error {
	out, err := h.claimOutput(ctx, p, true)
	if err != nil || out == nil {
		return err
	}
	adapter, err := h.adapterFor(out)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	req, err := h.request(ctx, out)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	result, err := adapter.GenerateScript(ctx, req)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	if err := h.orch.AdvanceScriptReady(ctx, out.ID, out.Generation, result); err != nil && !services.IsInvalidState(err) {
		return err
	}
	return nil
}

func (h *Handlers) renderMedia(ctx context.Context, p queue.Payload) error {
	out, err := h.claimOutput(ctx, p, false)
	if err != nil || out == nil {
		return err
	}
	if out.ProviderID != "" {
		// A render for this generation is already in flight.
		h.skip(ctx, p, "render already submitted")
		return nil
	}
	return h.generate(ctx, out)
}

// generate runs the adapter's Generate and records the outcome.
func (h *Handlers) generate(ctx context.Context, out *output.Output) error {
	adapter, err := h.adapterFor(out)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	req, err := h.request(ctx, out)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	result, err := adapter.Generate(ctx, req)
	if err != nil {
		return h.fail(ctx, out, err)
	}
	if !result.Pending() {
		err := h.orch.CompleteOutput(ctx, out.ID, out.Generation, result)
		if err != nil && !services.IsInvalidState(err) {
			return err
		}
		return nil
	}

	providerID := result.ProviderID
	moved, err := h.store.UpdateOutput(ctx, out.ID,
		store.OutputGuard{Status: output.StatusProcessing, Generation: out.Generation},
		output.StatusProcessing, store.OutputPatch{ProviderID: &providerID})
	if err != nil {
		return err
	}
	if !moved {
		h.skip(ctx, queue.Payload{OutputID: out.ID}, "output changed while rendering")
		return nil
	}
	logging.WithContext(ctx, h.logger).Info("render submitted",
		logging.String(logging.FieldEventType, "render_submitted"),
		logging.String(logging.FieldOutputID, out.ID),
		logging.String("provider_id", providerID))
	if _, err := h.queue.Enqueue(ctx, queue.Request{
		Kind:      queue.KindResolveProviderAsset,
		Payload:   queue.Payload{ProviderID: providerID, OutputID: out.ID, Generation: out.Generation},
		DedupeKey: fmt.Sprintf("%s:%s:check", queue.KindResolveProviderAsset, providerID),
		Delay:     renderCheckDelay,
	}); err != nil {
		logging.WarnWithContext(h.logger, "render check not queued", "render_check_enqueue_failed",
			logging.String(logging.FieldOutputID, out.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "completion relies on the backend callback alone"))
	}
	return nil
}

// resolveProviderAsset finishes an output whose callback could not be applied
// directly. It polls the backend and retries until a PROCESSING output with
// the provider id exists and the backend reports a final state.
func (h *Handlers) resolveProviderAsset(ctx context.Context, p queue.Payload) error {
	if p.FollowUp {
		return h.resolveFollowUp(ctx, p)
	}
	out, err := h.store.FindOutputByProviderID(ctx, p.ProviderID, output.StatusProcessing)
	if services.IsNotFound(err) {
		return h.unresolved(ctx, p, h.finishedByProvider)
	}
	if err != nil {
		return err
	}
	if out.FollowUpID != "" {
		return nil
	}
	adapter, err := h.adapterFor(out)
	if err != nil {
		return err
	}
	status, err := adapter.CheckStatus(ctx, p.ProviderID)
	if err != nil {
		return err
	}
	switch status.State {
	case generation.StateCompleted:
		url := status.AssetURL
		if url == "" {
			url = p.URL
		}
		return h.reconciler.VideoRendered(ctx, p.ProviderID, url, status.DurationSeconds)
	case generation.StateFailed:
		return h.fail(ctx, out, fmt.Errorf("render failed: %s", status.Error))
	default:
		return notYet("render %s still processing", p.ProviderID)
	}
}

func (h *Handlers) resolveFollowUp(ctx context.Context, p queue.Payload) error {
	out, err := h.store.FindOutputByFollowUpID(ctx, p.ProviderID, output.StatusProcessing)
	if services.IsNotFound(err) {
		return h.unresolved(ctx, p, h.finishedByFollowUp)
	}
	if err != nil {
		return err
	}
	url := p.URL
	if url == "" {
		if h.captions == nil {
			return services.Wrap(services.ErrConfiguration, "worker", "resolve captions", "captions backend is not configured", nil)
		}
		status, err := h.captions.Status(ctx, p.ProviderID)
		if err != nil {
			return err
		}
		switch status.Status {
		case captions.StateCompleted:
			url = status.URL
		case captions.StateFailed:
			return h.fail(ctx, out, fmt.Errorf("captions failed: %s", status.Error))
		default:
			return notYet("captions %s still processing", p.ProviderID)
		}
	}
	return h.reconciler.CaptionsFinished(ctx, p.ProviderID, url)
}

// unresolved decides between a finished output (done) and one that has not
// recorded the provider id yet (retry).
func (h *Handlers) unresolved(ctx context.Context, p queue.Payload, finished func(context.Context, string) (bool, error)) error {
	done, err := finished(ctx, p.ProviderID)
	if err != nil {
		return err
	}
	if done {
		h.skip(ctx, p, "output already finished")
		return nil
	}
	return notYet("no output is waiting on %s yet", p.ProviderID)
}

func (h *Handlers) finishedByProvider(ctx context.Context, id string) (bool, error) {
	return h.finished(ctx, id, h.store.FindOutputByProviderID)
}

func (h *Handlers) finishedByFollowUp(ctx context.Context, id string) (bool, error) {
	return h.finished(ctx, id, h.store.FindOutputByFollowUpID)
}

func (h *Handlers) finished(ctx context.Context, id string, find func(context.Context, string, output.Status) (*output.Output, error)) (bool, error) {
	for _, status := range []output.Status{output.StatusCompleted, output.StatusFailed} {
		_, err := find(ctx, id, status)
		if err == nil {
			return true, nil
		}
		if !services.IsNotFound(err) {
			return false, err
		}
	}
	return false, nil
}

func notYet(format string, args ...any) error {
	return services.Wrap(services.ErrTransient, "worker", "resolve provider asset", fmt.Sprintf(format, args...), nil)
}
