package output

import (
	"encoding/json"
	"fmt"
)

// Payload is the kind-specific result body of an Output.
type Payload interface {
	Kind() Kind
}

// Segment is one spoken turn of a podcast script.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AudioPayload is a narrated article.
type AudioPayload struct {
	Transcript string `json:"transcript"`
	VoiceID    string `json:"voice_id,omitempty"`
}

// PodcastPayload is a multi-speaker conversation about the article.
type PodcastPayload struct {
	Segments []Segment `json:"segments"`
}

// VideoPayload is an avatar video, optionally post-processed with captions and B-roll.
type VideoPayload struct {
	Title        string `json:"title,omitempty"`
	CaptionsURL  string `json:"captions_url,omitempty"`
	BrollApplied bool   `json:"broll_applied,omitempty"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizPayload is a comprehension quiz over the article.
type QuizPayload struct {
	Questions []QuizQuestion `json:"questions"`
}

// InteractivePrompt is a listener question inserted after a segment.
type InteractivePrompt struct {
	AfterSegment int    `json:"after_segment"`
	Question     string `json:"question"`
}

// InteractivePodcastPayload is a podcast with listener prompts between segments.
type InteractivePodcastPayload struct {
	Segments []Segment           `json:"segments"`
	Prompts  []InteractivePrompt `json:"prompts"`
}

func (AudioPayload) Kind() Kind              { return KindAudio }
func (PodcastPayload) Kind() Kind            { return KindPodcast }
func (VideoPayload) Kind() Kind              { return KindVideo }
func (QuizPayload) Kind() Kind               { return KindQuiz }
func (InteractivePodcastPayload) Kind() Kind { return KindInteractivePodcast }

type payloadEnvelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalPayload encodes p with its kind discriminant. A nil payload encodes as "".
func MarshalPayload(p Payload) (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	raw, err := json.Marshal(payloadEnvelope{Kind: p.Kind(), Data: data})
	if err != nil {
		return "", fmt.Errorf("encode payload envelope: %w", err)
	}
	return string(raw), nil
}

// UnmarshalPayload decodes a stored payload. An empty string yields nil.
func UnmarshalPayload(raw string) (Payload, error) {
	if raw == "" {
		return nil, nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}
	var target Payload
	switch env.Kind {
	case KindAudio:
		target = &AudioPayload{}
	case KindPodcast:
		target = &PodcastPayload{}
	case KindVideo:
		target = &VideoPayload{}
	case KindQuiz:
		target = &QuizPayload{}
	case KindInteractivePodcast:
		target = &InteractivePodcastPayload{}
	default:
		return nil, fmt.Errorf("decode payload: unknown kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return deref(target), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *AudioPayload:
		return *v
	case *PodcastPayload:
		return *v
	case *VideoPayload:
		return *v
	case *QuizPayload:
		return *v
	case *InteractivePodcastPayload:
		return *v
	default:
		return p
	}
}
