package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"contentops/internal/generation"
	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/output"
	"contentops/internal/queue"
	"contentops/internal/services"
	"contentops/internal/store"
)

// AdvanceScriptReady stores a generated script and pauses the output for
// review.
func (o *Orchestrator) AdvanceScriptReady(ctx context.Context, outputID string, gen int, result generation.ScriptResult) error {
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return err
	}
	if err := output.CanTransition(out.Kind, output.StatusProcessing, output.StatusScriptReady); err != nil {
		return err
	}
	script := result.Script
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusProcessing, Generation: gen},
		output.StatusScriptReady,
		store.OutputPatch{Script: &script, Payload: result.Payload, SetPayload: result.Payload != nil})
	if err != nil {
		return err
	}
	if !moved {
		return o.lostSwap(ctx, "script ready", outputID, output.StatusProcessing)
	}
	o.logger.Info("script ready for review",
		logging.String(logging.FieldEventType, "script_ready"),
		logging.String(logging.FieldOutputID, outputID),
		logging.String("kind", string(out.Kind)))
	o.Recompute(ctx, out.SubmissionID)
	o.notify(ctx, notifications.EventScriptReady, notifications.Payload{"kind": string(out.Kind), "outputID": outputID})
	return nil
}

// TriggerMediaGeneration applies review-time customization and starts
// rendering a SCRIPT_READY output.
func (o *Orchestrator) TriggerMediaGeneration(ctx context.Context, outputID string, c output.Customization) (*output.Output, error) {
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	if out.Status != output.StatusScriptReady {
		return nil, services.Wrap(services.ErrInvalidState, "orchestrator", "generate media",
			fmt.Sprintf("output is %s; media generation starts from SCRIPT_READY", out.Status), nil)
	}
	if err := o.validateCustomization(ctx, out.OrganizationID, c); err != nil {
		return nil, err
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusScriptReady, Generation: out.Generation},
		output.StatusProcessing,
		store.OutputPatch{Customization: &c})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, o.lostSwap(ctx, "generate media", outputID, output.StatusScriptReady)
	}
	out.Status, out.Customization = output.StatusProcessing, c
	if err := o.schedule(ctx, queue.KindRenderMedia, out); err != nil {
		return nil, err
	}
	o.Recompute(ctx, out.SubmissionID)
	return out, nil
}

// RegenerateMedia restarts a COMPLETED or FAILED output at a new generation.
// Approval is cleared because the approved media is being replaced. Jobs
// still carrying the old generation are dropped as stale.
func (o *Orchestrator) RegenerateMedia(ctx context.Context, outputID string, c *output.Customization) (*output.Output, error) {
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	if err := output.Reentry(out.Kind, out.Status); err != nil {
		return nil, err
	}
	if c != nil {
		if err := o.validateCustomization(ctx, out.OrganizationID, *c); err != nil {
			return nil, err
		}
	}
	empty, zero := "", 0
	patch := store.OutputPatch{
		Error:           &empty,
		ProviderID:      &empty,
		FollowUpID:      &empty,
		AssetURL:        &empty,
		DurationSeconds: &zero,
		BumpGeneration:  true,
		ClearApproval:   true,
		Customization:   c,
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: out.Status, Generation: out.Generation},
		output.StatusProcessing, patch)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, o.lostSwap(ctx, "regenerate", outputID, out.Status)
	}
	out.Status = output.StatusProcessing
	out.Generation++
	out.Error, out.ProviderID, out.FollowUpID, out.AssetURL, out.DurationSeconds = "", "", "", "", 0
	out.IsApproved, out.ApprovedAt = false, nil
	if c != nil {
		out.Customization = *c
	}

	kind := regenerateJob(out)
	o.logger.Info("output regenerating",
		logging.String(logging.FieldEventType, "output_regenerate"),
		logging.String(logging.FieldOutputID, outputID),
		logging.String(logging.FieldJobKind, string(kind)),
		logging.Int("generation", out.Generation))
	if err := o.schedule(ctx, kind, out); err != nil {
		return nil, err
	}
	o.Recompute(ctx, out.SubmissionID)
	return out, nil
}

// CompleteOutput finishes a PROCESSING output. A nil payload keeps the stored
// one. When result carries a provider id it must match the row's.
func (o *Orchestrator) CompleteOutput(ctx context.Context, outputID string, gen int, result generation.MediaResult) error {
	empty := ""
	patch := store.OutputPatch{
		Error:           &empty,
		AssetURL:        &result.AssetURL,
		DurationSeconds: &result.DurationSeconds,
	}
	if result.Payload != nil {
		patch.Payload, patch.SetPayload = result.Payload, true
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusProcessing, Generation: gen, ProviderID: result.ProviderID},
		output.StatusCompleted, patch)
	if err != nil {
		return err
	}
	if !moved {
		return o.lostSwap(ctx, "complete", outputID, output.StatusProcessing)
	}
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return err
	}
	o.logger.Info("output completed",
		logging.String(logging.FieldEventType, "output_completed"),
		logging.String(logging.FieldOutputID, outputID),
		logging.String("kind", string(out.Kind)))
	o.Recompute(ctx, out.SubmissionID)
	return nil
}

// FailOutput records a generation failure on a PROCESSING output.
func (o *Orchestrator) FailOutput(ctx context.Context, outputID string, gen int, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "generation failed"
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusProcessing, Generation: gen},
		output.StatusFailed, store.OutputPatch{Error: &reason})
	if err != nil {
		return err
	}
	if !moved {
		return o.lostSwap(ctx, "fail", outputID, output.StatusProcessing)
	}
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return err
	}
	logging.WarnWithContext(o.logger, "output failed", "output_failed",
		logging.String(logging.FieldOutputID, outputID),
		logging.String("kind", string(out.Kind)),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "fix the cause, then regenerate the output"),
		logging.String(logging.FieldImpact, "output has no media"),
	)
	o.Recompute(ctx, out.SubmissionID)
	o.notify(ctx, notifications.EventOutputFailed, notifications.Payload{
		"kind":     string(out.Kind),
		"outputID": outputID,
		"error":    reason,
	})
	return nil
}

// EditScript replaces the script of an output under review.
func (o *Orchestrator) EditScript(ctx context.Context, outputID, script string) (*output.Output, error) {
	script, err := requireText("edit script", "script", script)
	if err != nil {
		return nil, err
	}
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	if out.Status != output.StatusScriptReady {
		return nil, services.Wrap(services.ErrInvalidState, "orchestrator", "edit script",
			fmt.Sprintf("output is %s; scripts can only be edited in SCRIPT_READY", out.Status), nil)
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusScriptReady, Generation: out.Generation},
		output.StatusScriptReady, store.OutputPatch{Script: &script})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, o.lostSwap(ctx, "edit script", outputID, output.StatusScriptReady)
	}
	out.Script = script
	return out, nil
}

// Approve marks a COMPLETED output as editorially approved.
func (o *Orchestrator) Approve(ctx context.Context, outputID string) (*output.Output, error) {
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	if err := output.CanApprove(out.Status); err != nil {
		return nil, err
	}
	now, approved := o.now(), true
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: output.StatusCompleted, Generation: out.Generation},
		output.StatusCompleted, store.OutputPatch{Approved: &approved, ApprovedAt: &now})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, o.lostSwap(ctx, "approve", outputID, output.StatusCompleted)
	}
	out.IsApproved, out.ApprovedAt = true, &now
	return out, nil
}

// Unapprove clears the approval flag and timestamp. Status is untouched.
func (o *Orchestrator) Unapprove(ctx context.Context, outputID string) (*output.Output, error) {
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	moved, err := o.store.UpdateOutput(ctx, outputID,
		store.OutputGuard{Status: out.Status, Generation: out.Generation},
		out.Status, store.OutputPatch{ClearApproval: true})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, o.lostSwap(ctx, "unapprove", outputID, out.Status)
	}
	out.IsApproved, out.ApprovedAt = false, nil
	return out, nil
}

// AttachTag attaches an organization tag to an output, creating the tag when
// it does not exist yet. Attaching a tag twice is a no-op.
func (o *Orchestrator) AttachTag(ctx context.Context, outputID, name string) (*store.Tag, error) {
	name, err := requireText("attach tag", "name", name)
	if err != nil {
		return nil, err
	}
	out, err := o.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, err
	}
	tag, err := o.store.EnsureTag(ctx, out.OrganizationID, name)
	if err != nil {
		return nil, err
	}
	if _, err := o.store.AttachTag(ctx, out.ID, tag.ID, false, ""); err != nil {
		return nil, err
	}
	return tag, nil
}
