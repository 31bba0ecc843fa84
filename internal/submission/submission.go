// Package submission defines the per-language generation request that groups
// one Output per enabled media kind, plus its aggregate status vocabulary.
package submission

import (
	"strings"
	"time"

	"contentops/internal/language"
	"contentops/internal/output"
)

// Status is the aggregate state of a submission. It is derived from the
// statuses of the submission's outputs, never set by hand after creation.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessing      Status = "PROCESSING"
	StatusCompleted       Status = "COMPLETED"
	StatusFailed          Status = "FAILED"
	StatusPartialComplete Status = "PARTIAL_COMPLETE"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusPartialComplete}

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

// Flags records which media kinds a submission generates.
type Flags struct {
	Audio              bool `json:"generate_audio"`
	Podcast            bool `json:"generate_podcast"`
	Video              bool `json:"generate_video"`
	Quiz               bool `json:"generate_quiz"`
	InteractivePodcast bool `json:"generate_interactive_podcast"`
}

// Enabled reports whether kind is requested.
func (f Flags) Enabled(kind output.Kind) bool {
	switch kind {
	case output.KindAudio:
		return f.Audio
	case output.KindPodcast:
		return f.Podcast
	case output.KindVideo:
		return f.Video
	case output.KindQuiz:
		return f.Quiz
	case output.KindInteractivePodcast:
		return f.InteractivePodcast
	default:
		return false
	}
}

// Kinds lists the requested kinds in creation order.
func (f Flags) Kinds() []output.Kind {
	var kinds []output.Kind
	for _, kind := range output.AllKinds() {
		if f.Enabled(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// FlagOptions is the opt-out form accepted from callers: an omitted flag means
// the kind is generated.
type FlagOptions struct {
	Audio              *bool `json:"generate_audio,omitempty"`
	Podcast            *bool `json:"generate_podcast,omitempty"`
	Video              *bool `json:"generate_video,omitempty"`
	Quiz               *bool `json:"generate_quiz,omitempty"`
	InteractivePodcast *bool `json:"generate_interactive_podcast,omitempty"`
}

// Resolve applies the default-true rule.
func (o FlagOptions) Resolve() Flags {
	pick := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}
	return Flags{
		Audio:              pick(o.Audio),
		Podcast:            pick(o.Podcast),
		Video:              pick(o.Video),
		Quiz:               pick(o.Quiz),
		InteractivePodcast: pick(o.InteractivePodcast),
	}
}

// Submission is one (article, language) generation request.
type Submission struct {
	ID             string
	ArticleID      string
	OrganizationID string
	Language       language.Language
	Flags          Flags
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
