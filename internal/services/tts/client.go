// Package tts is the client for the speech synthesis backend. Synthesis is
// synchronous: the response carries the hosted audio URL.
package tts

import (
	"context"
	"net/http"
	"strings"

	"contentops/internal/config"
	"contentops/internal/services"
	"contentops/internal/services/backend"
)

// Line is one speaker turn. A single-voice narration is one line.
type Line struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Request asks the backend to render speech.
type Request struct {
	Language        string `json:"language"`
	VoiceID         string `json:"voice_id,omitempty"`
	BackgroundMusic string `json:"background_music_id,omitempty"`
	Lines           []Line `json:"lines"`
}

// Audio is a rendered audio file.
type Audio struct {
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Client talks to the speech backend.
type Client struct {
	transport *backend.Client
}

// New constructs a client from the [tts] section.
func New(cfg config.Backend, opts ...backend.Option) *Client {
	return &Client{transport: backend.New(backend.Config{
		Name:    "tts",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout(),
	}, opts...)}
}

// Synthesize renders req and returns the hosted audio.
func (c *Client) Synthesize(ctx context.Context, req Request) (Audio, error) {
	var text int
	for _, line := range req.Lines {
		text += len(strings.TrimSpace(line.Text))
	}
	if text == 0 {
		return Audio{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "no text to speak", nil)
	}
	var audio Audio
	if err := c.transport.Do(ctx, http.MethodPost, "/v1/speech", req, &audio); err != nil {
		return Audio{}, err
	}
	if strings.TrimSpace(audio.URL) == "" {
		return Audio{}, services.Wrap(services.ErrUpstream, "tts", "synthesize", "response has no audio url", nil)
	}
	return audio, nil
}
