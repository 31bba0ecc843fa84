package orchestrator

import (
	"context"

	"contentops/internal/logging"
	"contentops/internal/output"
	"contentops/internal/queue"
)

// StandaloneVideoRequest renders a video from an operator-supplied script
// without an article or submission.
type StandaloneVideoRequest struct {
	OrganizationID string
	Title          string
	Script         string
	Customization  output.Customization
}

// CreateStandaloneVideo creates a video output directly in PROCESSING and
// queues its render.
func (o *Orchestrator) CreateStandaloneVideo(ctx context.Context, req StandaloneVideoRequest) (*output.Output, error) {
	orgID, err := requireText("standalone video", "organization_id", req.OrganizationID)
	if err != nil {
		return nil, err
	}
	title, err := requireText("standalone video", "title", req.Title)
	if err != nil {
		return nil, err
	}
	script, err := requireText("standalone video", "script", req.Script)
	if err != nil {
		return nil, err
	}
	if err := o.validateCustomization(ctx, orgID, req.Customization); err != nil {
		return nil, err
	}
	out := &output.Output{
		OrganizationID: orgID,
		Kind:           output.KindVideo,
		Status:         output.StatusProcessing,
		Script:         script,
		Payload:        output.VideoPayload{Title: title},
		Customization:  req.Customization,
	}
	if err := o.store.CreateOutput(ctx, out); err != nil {
		return nil, err
	}
	o.logger.Info("standalone video created",
		logging.String(logging.FieldEventType, "standalone_video_created"),
		logging.String(logging.FieldOutputID, out.ID))
	if err := o.schedule(ctx, queue.KindRenderMedia, out); err != nil {
		return nil, err
	}
	return out, nil
}
