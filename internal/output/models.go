package output

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the media type an Output produces.
type Kind string

const (
	KindAudio              Kind = "audio"
	KindPodcast            Kind = "podcast"
	KindVideo              Kind = "video"
	KindQuiz               Kind = "quiz"
	KindInteractivePodcast Kind = "interactive_podcast"
)

var allKinds = []Kind{KindAudio, KindPodcast, KindVideo, KindQuiz, KindInteractivePodcast}

// AllKinds returns every media kind in creation order.
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind converts a string to a Kind, accepting the dashed and camel forms clients send.
func ParseKind(value string) (Kind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "interactivepodcast" {
		normalized = string(KindInteractivePodcast)
	}
	for _, k := range allKinds {
		if string(k) == normalized {
			return k, true
		}
	}
	return "", false
}

// ScriptFirst reports whether the kind pauses at SCRIPT_READY for human review
// before rendering.
func (k Kind) ScriptFirst() bool {
	switch k {
	case KindPodcast, KindVideo, KindInteractivePodcast:
		return true
	default:
		return false
	}
}

// Status is the generation lifecycle state of an Output.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusProcessing  Status = "PROCESSING"
	StatusScriptReady Status = "SCRIPT_READY"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusScriptReady, StatusCompleted, StatusFailed}

// AllStatuses returns every status.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status, matching case-insensitively.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further work happens without a regenerate.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Outstanding reports whether work is queued or running.
func (s Status) Outstanding() bool {
	return s == StatusPending || s == StatusProcessing
}

// Output is one (submission, kind) generation unit. Standalone videos have no submission.
type Output struct {
	ID              string
	SubmissionID    string
	OrganizationID  string
	Kind            Kind
	Status          Status
	Error           string
	IsApproved      bool
	ApprovedAt      *time.Time
	Script          string
	Payload         Payload
	Customization   Customization
	ProviderID      string
	FollowUpID      string
	AssetURL        string
	DurationSeconds int
	Generation      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Standalone reports whether the output is not linked to a submission.
func (o *Output) Standalone() bool {
	return o.SubmissionID == ""
}

// HasScript reports whether a reviewed or generated script is present.
func (o *Output) HasScript() bool {
	return strings.TrimSpace(o.Script) != ""
}

func (o *Output) String() string {
	return fmt.Sprintf("%s %s (%s)", o.Kind, o.ID, o.Status)
}
