package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind names the handler a job is routed to.
type Kind string

const (
	KindGenerateOutput       Kind = "generate_output"
	KindGenerateScript       Kind = "generate_script"
	KindRenderMedia          Kind = "render_media"
	KindResolveProviderAsset Kind = "resolve_provider_asset"
	KindInheritTags          Kind = "inherit_tags"
)

var allKinds = []Kind{
	KindGenerateOutput,
	KindGenerateScript,
	KindRenderMedia,
	KindResolveProviderAsset,
	KindInheritTags,
}

// AllKinds returns every job kind in dispatch order.
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a string into a Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range allKinds {
		if k == normalized {
			return k, true
		}
	}
	return "", false
}

// Status represents the lifecycle of a job row.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusDead    Status = "dead"
)

var allStatuses = []Status{StatusQueued, StatusRunning, StatusDone, StatusDead}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// Payload is the job body. Handlers read the fields relevant to their kind.
type Payload struct {
	OutputID       string `json:"output_id,omitempty"`
	SubmissionID   string `json:"submission_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Generation     int    `json:"generation,omitempty"`
	ProviderID     string `json:"provider_id,omitempty"`
	FollowUp       bool   `json:"follow_up,omitempty"`
	URL            string `json:"url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Request describes a job to enqueue.
type Request struct {
	Kind      Kind
	Payload   Payload
	DedupeKey string
	Delay     time.Duration
}

// Job is a persisted queue entry.
type Job struct {
	ID          string
	Kind        Kind
	Payload     Payload
	Status      Status
	Attempts    int
	MaxAttempts int
	AvailableAt time.Time
	LeaseOwner  string
	HeartbeatAt *time.Time
	LastError   string
	DedupeKey   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DedupeKey builds the conventional key for per-output work at a generation.
func DedupeKey(kind Kind, outputID string, generation int) string {
	return fmt.Sprintf("%s:%s:%d", kind, outputID, generation)
}

func encodePayload(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode job payload: %w", err)
	}
	return string(raw), nil
}

func decodePayload(raw string) (Payload, error) {
	var p Payload
	if strings.TrimSpace(raw) == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("decode job payload: %w", err)
	}
	return p, nil
}
