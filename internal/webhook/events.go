package webhook

// Video backend event types.
const (
	EventVideoSuccess = "avatar_video.success"
	EventVideoFail    = "avatar_video.fail"
)

// Captions backend event types.
const (
	EventCaptionsCompleted = "captions.completed"
	EventCaptionsFailed    = "captions.failed"
)

// VideoEvent is the avatar backend's callback body.
type VideoEvent struct {
	EventType string    `json:"event_type"`
	EventData VideoData `json:"event_data"`
}

// VideoData identifies the rendered video.
type VideoData struct {
	VideoID    string  `json:"video_id"`
	URL        string  `json:"url"`
	Error      string  `json:"error"`
	CallbackID string  `json:"callback_id"`
	Duration   float64 `json:"duration"`
}

// CaptionsEvent is the captions backend's callback body.
type CaptionsEvent struct {
	EventType string       `json:"event_type"`
	EventData CaptionsData `json:"event_data"`
}

// CaptionsData identifies the post-processing job.
type CaptionsData struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Error string `json:"error"`
}
