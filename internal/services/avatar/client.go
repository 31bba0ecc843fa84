// Package avatar is the client for the presenter-avatar video backend.
// Rendering is asynchronous: CreateVideo returns the provider video id and
// the backend later calls the video webhook. Status can also be polled.
package avatar

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"contentops/internal/config"
	"contentops/internal/services"
	"contentops/internal/services/backend"
)

// Render states reported by the backend.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// VideoRequest describes a video to render.
type VideoRequest struct {
	Title           string `json:"title"`
	Script          string `json:"script"`
	Language        string `json:"language"`
	CharacterID     string `json:"character_id,omitempty"`
	VoiceID         string `json:"voice_id,omitempty"`
	TemplateID      string `json:"template_id,omitempty"`
	BackgroundMusic string `json:"background_music_id,omitempty"`
	IntroBumper     string `json:"intro_bumper_id,omitempty"`
	OutroBumper     string `json:"outro_bumper_id,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	CallbackID      string `json:"callback_id,omitempty"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

// VideoStatus is the polled state of a render.
type VideoStatus struct {
	ID              string  `json:"video_id"`
	Status          string  `json:"status"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration"`
	Error           string  `json:"error"`
}

// Client talks to the avatar backend.
type Client struct {
	transport *backend.Client
}

// New constructs a client from the [avatar] section.
func New(cfg config.Backend, opts ...backend.Option) *Client {
	return &Client{transport: backend.New(backend.Config{
		Name:    "avatar",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout(),
	}, opts...)}
}

// CreateVideo starts a render and returns the provider's video id.
func (c *Client) CreateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if strings.TrimSpace(req.Script) == "" {
		return "", services.Wrap(services.ErrValidation, "avatar", "create video", "script is empty", nil)
	}
	var resp struct {
		Data struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}
	if err := c.transport.Do(ctx, http.MethodPost, "/v2/videos", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.VideoID == "" {
		return "", services.Wrap(services.ErrUpstream, "avatar", "create video", "response has no video_id", nil)
	}
	return resp.Data.VideoID, nil
}

// VideoStatus polls a render.
func (c *Client) VideoStatus(ctx context.Context, videoID string) (VideoStatus, error) {
	var resp struct {
		Data VideoStatus `json:"data"`
	}
	if err := c.transport.Do(ctx, http.MethodGet, "/v1/videos/"+url.PathEscape(videoID), nil, &resp); err != nil {
		return VideoStatus{}, err
	}
	resp.Data.Status = strings.ToLower(strings.TrimSpace(resp.Data.Status))
	if resp.Data.ID == "" {
		resp.Data.ID = videoID
	}
	return resp.Data, nil
}
