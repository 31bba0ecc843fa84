package generation

import (
	"fmt"
	"strings"

	"contentops/internal/output"
	"contentops/internal/services"
)

const questionMarker = "[QUESTION]"

// FormatSegments renders a conversation as editable text: one "SPEAKER: text"
// line per segment, with listener questions as "[QUESTION] text" lines after
// the segment they follow.
func FormatSegments(segments []output.Segment, prompts []output.InteractivePrompt) string {
	after := make(map[int][]string)
	for _, p := range prompts {
		after[p.AfterSegment] = append(after[p.AfterSegment], p.Question)
	}
	var b strings.Builder
	for i, s := range segments {
		speaker := s.Speaker
		if speaker == "" {
			speaker = "HOST"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, s.Text)
		for _, q := range after[i] {
			fmt.Fprintf(&b, "%s %s\n", questionMarker, q)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseScript reads text produced by FormatSegments, possibly edited by a
// reviewer. Lines without a speaker continue the previous segment.
func ParseScript(script string) ([]output.Segment, []output.InteractivePrompt, error) {
	var (
		segments []output.Segment
		prompts  []output.InteractivePrompt
	)
	for _, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, questionMarker); ok {
			if len(segments) == 0 {
				continue
			}
			if q := strings.TrimSpace(rest); q != "" {
				prompts = append(prompts, output.InteractivePrompt{AfterSegment: len(segments) - 1, Question: q})
			}
			continue
		}
		speaker, text, ok := strings.Cut(line, ":")
		if ok && isSpeaker(speaker) {
			segments = append(segments, output.Segment{Speaker: strings.TrimSpace(speaker), Text: strings.TrimSpace(text)})
			continue
		}
		if len(segments) == 0 {
			segments = append(segments, output.Segment{Speaker: "HOST", Text: line})
			continue
		}
		last := &segments[len(segments)-1]
		last.Text = strings.TrimSpace(last.Text + " " + line)
	}
	if len(segments) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "generation", "parse script", "script has no spoken lines", nil)
	}
	return segments, prompts, nil
}

// isSpeaker accepts short labels without sentence punctuation, so a colon
// inside ordinary prose is not mistaken for a speaker change.
func isSpeaker(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || len(label) > 24 {
		return false
	}
	return !strings.ContainsAny(label, ".,!?\"")
}
