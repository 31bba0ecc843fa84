package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentops/internal/config"
)

const userAgent = "contentops/0.1.0"

// Event names a notification type.
type Event string

const (
	EventSubmissionCompleted Event = "submission_completed"
	EventSubmissionPartial   Event = "submission_partial"
	EventSubmissionFailed    Event = "submission_failed"
	EventOutputFailed        Event = "output_failed"
	EventScriptReady         Event = "script_ready"
	EventTest                Event = "test"
)

// Payload carries the event's template values.
type Payload map[string]any

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventSubmissionCompleted: cfg.Notifications.SubmissionCompleted,
			EventSubmissionPartial:   cfg.Notifications.SubmissionCompleted,
			EventSubmissionFailed:    cfg.Notifications.OutputFailed,
			EventOutputFailed:        cfg.Notifications.OutputFailed,
			EventScriptReady:         cfg.Notifications.ScriptReady,
			EventTest:                true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSubmissionCompleted:
		return message{
			title: "contentops - Submission Complete",
			body:  fmt.Sprintf("✅ %s (%s): all media ready", payload.text("title"), payload.text("language")),
			tags:  []string{"contentops", "submission", "completed"},
		}, true
	case EventSubmissionPartial:
		return message{
			title: "contentops - Submission Partially Complete",
			body: fmt.Sprintf("⚠️ %s (%s): %s of %s outputs finished",
				payload.text("title"), payload.text("language"), payload.text("completed"), payload.text("total")),
			tags: []string{"contentops", "submission", "partial"},
		}, true
	case EventSubmissionFailed:
		return message{
			title:    "contentops - Submission Failed",
			body:     fmt.Sprintf("❌ %s (%s): every output failed", payload.text("title"), payload.text("language")),
			tags:     []string{"contentops", "submission", "failed"},
			priority: "high",
		}, true
	case EventOutputFailed:
		body := fmt.Sprintf("❌ %s output %s failed", payload.text("kind"), payload.text("outputID"))
		if reason := payload.text("error"); reason != "" {
			body = fmt.Sprintf("%s: %s", body, reason)
		}
		return message{
			title:    "contentops - Output Failed",
			body:     body,
			tags:     []string{"contentops", "output", "failed"},
			priority: "high",
		}, true
	case EventScriptReady:
		return message{
			title: "contentops - Script Ready",
			body:  fmt.Sprintf("📝 %s script ready for review: %s", payload.text("kind"), payload.text("outputID")),
			tags:  []string{"contentops", "script", "review"},
		}, true
	case EventTest:
		return message{
			title:    "contentops - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"contentops", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// Recorder captures published events in memory. Tests use it in place of ntfy.
type Recorder struct {
	Events []Recorded
}

// Recorded is one captured publication.
type Recorded struct {
	Event   Event
	Payload Payload
}

func (r *Recorder) Publish(_ context.Context, event Event, payload Payload) error {
	r.Events = append(r.Events, Recorded{Event: event, Payload: payload})
	return nil
}

// Count returns how many times event was published.
func (r *Recorder) Count(event Event) int {
	n := 0
	for _, rec := range r.Events {
		if rec.Event == event {
			n++
		}
	}
	return n
}
