package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"contentops/internal/generation"
	"contentops/internal/language"
	"contentops/internal/logging"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/services"
	"contentops/internal/services/captions"
	"contentops/internal/store"
)

// CaptionsSubmitter starts post-processing. *captions.Client satisfies it.
type CaptionsSubmitter interface {
	Submit(ctx context.Context, req captions.Request) (string, error)
}

// Reconciler applies backend callbacks to outputs.
type Reconciler struct {
	orch          *orchestrator.Orchestrator
	store         *store.Store
	queue         queue.Enqueuer
	captions      CaptionsSubmitter
	publicBaseURL string
	logger        *slog.Logger
}

// NewReconciler wires a reconciler. publicBaseURL is where the captions
// backend calls back.
func NewReconciler(orch *orchestrator.Orchestrator, q queue.Enqueuer, submitter CaptionsSubmitter, publicBaseURL string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		orch:          orch,
		store:         orch.Store(),
		queue:         q,
		captions:      submitter,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logging.NewComponentLogger(logger, "webhook"),
	}
}

// CaptionsCallbackURL is the captions webhook endpoint.
func (r *Reconciler) CaptionsCallbackURL() string {
	return r.publicBaseURL + "/webhooks/captions"
}

// HandleVideo applies an avatar callback. The only error returned is a
// failure to queue the fallback job; everything else is logged.
func (r *Reconciler) HandleVideo(ctx context.Context, event VideoEvent) error {
	data := event.EventData
	logger := r.logger.With(logging.String("event", event.EventType), logging.String("video_id", data.VideoID))
	switch event.EventType {
	case EventVideoSuccess:
		err := r.VideoRendered(ctx, data.VideoID, data.URL, seconds(data.Duration))
		if err == nil {
			return nil
		}
		logger.Info("video callback deferred to resolver",
			logging.String(logging.FieldEventType, "webhook_fallback"),
			logging.Error(err))
		return r.fallback(ctx, queue.Payload{ProviderID: data.VideoID, URL: data.URL})
	case EventVideoFail:
		out, err := r.store.FindOutputByProviderID(ctx, data.VideoID, output.StatusProcessing)
		if err != nil {
			logging.WarnWithContext(logger, "video failure matched no output", "webhook_unmatched",
				logging.Error(err),
				logging.String(logging.FieldImpact, "failure callback dropped"))
			return nil
		}
		if err := r.orch.FailOutput(ctx, out.ID, out.Generation, failureReason("video render failed", data.Error)); err != nil {
			logging.WarnWithContext(logger, "video failure not recorded", "webhook_fail_output_failed",
				logging.String(logging.FieldOutputID, out.ID),
				logging.Error(err))
		}
		return nil
	default:
		logger.Info("unhandled video event", logging.String(logging.FieldEventType, "webhook_unknown_event"))
		return nil
	}
}

// HandleCaptions applies a captions callback with the same fallback policy
// as HandleVideo.
func (r *Reconciler) HandleCaptions(ctx context.Context, event CaptionsEvent) error {
	data := event.EventData
	logger := r.logger.With(logging.String("event", event.EventType), logging.String("captions_id", data.ID))
	switch event.EventType {
	case EventCaptionsCompleted:
		err := r.CaptionsFinished(ctx, data.ID, data.URL)
		if err == nil {
			return nil
		}
		logger.Info("captions callback deferred to resolver",
			logging.String(logging.FieldEventType, "webhook_fallback"),
			logging.Error(err))
		return r.fallback(ctx, queue.Payload{ProviderID: data.ID, FollowUp: true, URL: data.URL})
	case EventCaptionsFailed:
		out, err := r.store.FindOutputByFollowUpID(ctx, data.ID, output.StatusProcessing)
		if err != nil {
			logging.WarnWithContext(logger, "captions failure matched no output", "webhook_unmatched",
				logging.Error(err),
				logging.String(logging.FieldImpact, "failure callback dropped"))
			return nil
		}
		if err := r.orch.FailOutput(ctx, out.ID, out.Generation, failureReason("captions failed", data.Error)); err != nil {
			logging.WarnWithContext(logger, "captions failure not recorded", "webhook_fail_output_failed",
				logging.String(logging.FieldOutputID, out.ID),
				logging.Error(err))
		}
		return nil
	default:
		logger.Info("unhandled captions event", logging.String(logging.FieldEventType, "webhook_unknown_event"))
		return nil
	}
}

// VideoRendered finishes the PROCESSING output rendering providerID, or hands
// it to the captions backend when captions or B-roll were requested. It
// returns ErrNotFound when no PROCESSING output has that provider id.
// Repeated calls for the same render are no-ops.
func (r *Reconciler) VideoRendered(ctx context.Context, providerID, url string, durationSeconds int) error {
	out, err := r.store.FindOutputByProviderID(ctx, providerID, output.StatusProcessing)
	if err != nil {
		return err
	}
	if out.FollowUpID != "" {
		return nil
	}
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "webhook", "video rendered", "callback has no video url", nil)
	}
	if !out.Customization.NeedsPostProcessing() {
		return r.orch.CompleteOutput(ctx, out.ID, out.Generation, generation.MediaResult{
			AssetURL:        url,
			DurationSeconds: durationSeconds,
			ProviderID:      providerID,
		})
	}
	return r.startPostProcessing(ctx, out, url, durationSeconds)
}

func (r *Reconciler) startPostProcessing(ctx context.Context, out *output.Output, url string, durationSeconds int) error {
	if r.captions == nil {
		return services.Wrap(services.ErrConfiguration, "webhook", "post-process", "captions backend is not configured", nil)
	}
	refs, err := r.orch.ProviderRefs(ctx, out)
	if err != nil {
		return err
	}
	lang := language.Canonical
	if !out.Standalone() {
		if sub, err := r.store.GetSubmission(ctx, out.SubmissionID); err == nil {
			lang = sub.Language
		}
	}
	c := out.Customization
	jobID, err := r.captions.Submit(ctx, captions.Request{
		VideoURL:     url,
		Language:     lang.ISO2(),
		Captions:     c.CaptionsEnabled,
		StyleID:      refs["caption_style_id"],
		Broll:        c.BrollEnabled,
		CallbackURL:  r.CaptionsCallbackURL(),
		CallbackData: out.ID,
	})
	if err != nil {
		return err
	}
	moved, err := r.store.UpdateOutput(ctx, out.ID,
		store.OutputGuard{Status: output.StatusProcessing, Generation: out.Generation, ProviderID: out.ProviderID, FollowUpUnset: true},
		output.StatusProcessing,
		store.OutputPatch{FollowUpID: &jobID, AssetURL: &url, DurationSeconds: &durationSeconds})
	if err != nil {
		return err
	}
	if !moved {
		// A concurrent callback recorded its own follow-up first.
		r.logger.Info("duplicate post-processing submit ignored",
			logging.String(logging.FieldOutputID, out.ID),
			logging.String("captions_id", jobID))
		return nil
	}
	r.logger.Info("video sent for post-processing",
		logging.String(logging.FieldEventType, "post_processing_started"),
		logging.String(logging.FieldOutputID, out.ID),
		logging.String("captions_id", jobID))
	return nil
}

// CaptionsFinished completes the PROCESSING output whose post-processing job
// is followUpID. It returns ErrNotFound when none matches.
func (r *Reconciler) CaptionsFinished(ctx context.Context, followUpID, url string) error {
	out, err := r.store.FindOutputByFollowUpID(ctx, followUpID, output.StatusProcessing)
	if err != nil {
		return err
	}
	if strings.TrimSpace(url) == "" {
		return services.Wrap(services.ErrValidation, "webhook", "captions finished", "callback has no video url", nil)
	}
	payload, _ := out.Payload.(output.VideoPayload)
	if out.Customization.CaptionsEnabled {
		payload.CaptionsURL = url
	}
	payload.BrollApplied = out.Customization.BrollEnabled
	return r.orch.CompleteOutput(ctx, out.ID, out.Generation, generation.MediaResult{
		AssetURL:        url,
		DurationSeconds: out.DurationSeconds,
		Payload:         payload,
		ProviderID:      out.ProviderID,
	})
}

func (r *Reconciler) fallback(ctx context.Context, payload queue.Payload) error {
	key := fmt.Sprintf("%s:%s", queue.KindResolveProviderAsset, payload.ProviderID)
	if payload.FollowUp {
		key += ":follow_up"
	}
	if _, err := r.queue.Enqueue(ctx, queue.Request{
		Kind:      queue.KindResolveProviderAsset,
		Payload:   payload,
		DedupeKey: key,
	}); err != nil {
		logging.ErrorWithContext(r.logger, "fallback enqueue failed", "webhook_fallback_failed",
			logging.String("provider_id", payload.ProviderID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the backend will retry the callback"))
		return services.Wrap(services.ErrTransient, "webhook", "fallback", payload.ProviderID, err)
	}
	return nil
}

func failureReason(prefix, detail string) string {
	if detail = strings.TrimSpace(detail); detail != "" {
		return prefix + ": " + detail
	}
	return prefix
}

func seconds(value float64) int {
	if value <= 0 {
		return 0
	}
	return int(math.Round(value))
}
