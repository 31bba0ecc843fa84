package llm

import (
	"context"
	"fmt"
	"strings"

	"contentops/internal/output"
	"contentops/internal/services"
)

// Brief is the article context every writer receives.
type Brief struct {
	Title    string
	Body     string
	Category string
	// Language is the display name of the target language, e.g. "Hindi".
	Language string
}

func (b Brief) prompt(extra string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Target language: %s\n", b.Language)
	if b.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", b.Category)
	}
	fmt.Fprintf(&sb, "Title: %s\n\n%s", b.Title, b.Body)
	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&sb, "\n\n%s", extra)
	}
	return sb.String()
}

const (
	narrationPrompt = `You turn news articles into a narration read aloud by a single voice.
Write in the target language. Respond with JSON: {"transcript": string}.`

	podcastPrompt = `You turn news articles into a short two-host podcast conversation.
Write in the target language. Respond with JSON:
{"segments": [{"speaker": "HOST_A"|"HOST_B", "text": string}]}.`

	interactivePrompt = `You turn news articles into a two-host podcast with pauses where the
listener is asked a question. Write in the target language. Respond with JSON:
{"segments": [{"speaker": string, "text": string}],
 "prompts": [{"after_segment": integer index into segments, "question": string}]}.`

	videoPrompt = `You write the script a presenter avatar reads on camera for a news video.
Write in the target language, in short spoken sentences, no stage directions.
Respond with JSON: {"title": string, "script": string}.`

	quizPrompt = `You write comprehension quizzes for news articles. Write in the target
language. Respond with JSON: {"questions": [{"prompt": string, "choices": [string],
"answer_index": integer, "explanation": string}]}. Use 3 to 5 questions with 4 choices each.`
)

// WriteNarration returns the narration transcript for an audio output.
func (c *Client) WriteNarration(ctx context.Context, brief Brief) (string, error) {
	var parsed struct {
		Transcript string `json:"transcript"`
	}
	if err := c.write(ctx, "narration", narrationPrompt, brief.prompt(""), &parsed); err != nil {
		return "", err
	}
	transcript := strings.TrimSpace(parsed.Transcript)
	if transcript == "" {
		return "", invalid("narration", "transcript is empty")
	}
	return transcript, nil
}

// WritePodcast returns a two-host podcast script.
func (c *Client) WritePodcast(ctx context.Context, brief Brief) (output.PodcastPayload, error) {
	var parsed output.PodcastPayload
	if err := c.write(ctx, "podcast", podcastPrompt, brief.prompt(""), &parsed); err != nil {
		return parsed, err
	}
	parsed.Segments = cleanSegments(parsed.Segments)
	if len(parsed.Segments) == 0 {
		return parsed, invalid("podcast", "no segments")
	}
	return parsed, nil
}

// WriteInteractivePodcast returns a podcast script with listener prompts.
func (c *Client) WriteInteractivePodcast(ctx context.Context, brief Brief) (output.InteractivePodcastPayload, error) {
	var parsed output.InteractivePodcastPayload
	if err := c.write(ctx, "interactive podcast", interactivePrompt, brief.prompt(""), &parsed); err != nil {
		return parsed, err
	}
	parsed.Segments = cleanSegments(parsed.Segments)
	if len(parsed.Segments) == 0 {
		return parsed, invalid("interactive podcast", "no segments")
	}
	prompts := parsed.Prompts[:0]
	for _, p := range parsed.Prompts {
		p.Question = strings.TrimSpace(p.Question)
		if p.Question == "" || p.AfterSegment < 0 || p.AfterSegment >= len(parsed.Segments) {
			continue
		}
		prompts = append(prompts, p)
	}
	parsed.Prompts = prompts
	return parsed, nil
}

// VideoScript is the presenter script for an avatar video.
type VideoScript struct {
	Title  string `json:"title"`
	Script string `json:"script"`
}

// WriteVideoScript returns the presenter script for a video output.
func (c *Client) WriteVideoScript(ctx context.Context, brief Brief) (VideoScript, error) {
	var parsed VideoScript
	if err := c.write(ctx, "video script", videoPrompt, brief.prompt(""), &parsed); err != nil {
		return parsed, err
	}
	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Script = strings.TrimSpace(parsed.Script)
	if parsed.Script == "" {
		return parsed, invalid("video script", "script is empty")
	}
	if parsed.Title == "" {
		parsed.Title = brief.Title
	}
	return parsed, nil
}

// WriteQuiz returns a multiple-choice quiz. Malformed questions are dropped.
func (c *Client) WriteQuiz(ctx context.Context, brief Brief) (output.QuizPayload, error) {
	var parsed output.QuizPayload
	if err := c.write(ctx, "quiz", quizPrompt, brief.prompt(""), &parsed); err != nil {
		return parsed, err
	}
	questions := parsed.Questions[:0]
	for _, q := range parsed.Questions {
		q.Prompt = strings.TrimSpace(q.Prompt)
		if q.Prompt == "" || len(q.Choices) < 2 || q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
			continue
		}
		questions = append(questions, q)
	}
	parsed.Questions = questions
	if len(parsed.Questions) == 0 {
		return parsed, invalid("quiz", "no usable questions")
	}
	return parsed, nil
}

func (c *Client) write(ctx context.Context, what, system, user string, target any) error {
	content, err := c.CompleteJSON(ctx, system, user)
	if err != nil {
		return err
	}
	if err := DecodeJSON(content, target); err != nil {
		return services.Wrap(services.ErrUpstream, "llm", "write "+what, "unparseable response", err)
	}
	return nil
}

func cleanSegments(segments []output.Segment) []output.Segment {
	out := segments[:0]
	for _, s := range segments {
		s.Speaker = strings.TrimSpace(s.Speaker)
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func invalid(what, message string) error {
	return services.Wrap(services.ErrUpstream, "llm", "write "+what, message, nil)
}
