// Package captions is the client for the captioning and B-roll editing
// backend that post-processes rendered videos. Jobs are asynchronous and
// finish through the captions webhook.
package captions

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"contentops/internal/config"
	"contentops/internal/services"
	"contentops/internal/services/backend"
)

// Job states reported by the backend.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Request describes a post-processing job.
type Request struct {
	VideoURL     string `json:"video_url"`
	Language     string `json:"language"`
	Captions     bool   `json:"captions"`
	StyleID      string `json:"caption_style_id,omitempty"`
	Broll        bool   `json:"broll"`
	CallbackURL  string `json:"callback_url"`
	CallbackData string `json:"callback_data,omitempty"`
}

// JobStatus is the polled state of a post-processing job.
type JobStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

// Client talks to the captions backend.
type Client struct {
	transport *backend.Client
}

// New constructs a client from the [captions] section.
func New(cfg config.Backend, opts ...backend.Option) *Client {
	return &Client{transport: backend.New(backend.Config{
		Name:    "captions",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout(),
	}, opts...)}
}

// Submit starts a post-processing job and returns its id.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.VideoURL) == "" {
		return "", services.Wrap(services.ErrValidation, "captions", "submit", "video_url is required", nil)
	}
	var resp JobStatus
	if err := c.transport.Do(ctx, http.MethodPost, "/v1/jobs", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", services.Wrap(services.ErrUpstream, "captions", "submit", "response has no job id", nil)
	}
	return resp.ID, nil
}

// Status polls a job.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var resp JobStatus
	if err := c.transport.Do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return JobStatus{}, err
	}
	resp.Status = strings.ToLower(strings.TrimSpace(resp.Status))
	if resp.ID == "" {
		resp.ID = jobID
	}
	return resp, nil
}
