package generation

import (
	"context"
	"math"
	"strings"

	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/services/avatar"
	"contentops/internal/services/llm"
	"contentops/internal/services/tts"
)

// ScriptWriter writes scripts and structured content. *llm.Client satisfies it.
type ScriptWriter interface {
	WriteNarration(ctx context.Context, brief llm.Brief) (string, error)
	WritePodcast(ctx context.Context, brief llm.Brief) (output.PodcastPayload, error)
	WriteInteractivePodcast(ctx context.Context, brief llm.Brief) (output.InteractivePodcastPayload, error)
	WriteVideoScript(ctx context.Context, brief llm.Brief) (llm.VideoScript, error)
	WriteQuiz(ctx context.Context, brief llm.Brief) (output.QuizPayload, error)
}

// Synthesizer renders speech. *tts.Client satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) (tts.Audio, error)
}

// VideoRenderer renders avatar videos. *avatar.Client satisfies it.
type VideoRenderer interface {
	CreateVideo(ctx context.Context, req avatar.VideoRequest) (string, error)
	VideoStatus(ctx context.Context, videoID string) (avatar.VideoStatus, error)
}

// NewDefaultRegistry wires one adapter per kind.
func NewDefaultRegistry(writer ScriptWriter, speech Synthesizer, renderer VideoRenderer) *Registry {
	return NewRegistry(
		&AudioAdapter{Writer: writer, Speech: speech},
		&QuizAdapter{Writer: writer},
		&PodcastAdapter{Writer: writer, Speech: speech},
		&InteractivePodcastAdapter{Writer: writer, Speech: speech},
		&VideoAdapter{Writer: writer, Renderer: renderer},
	)
}

// AudioAdapter narrates the article with a single voice.
type AudioAdapter struct {
	Writer ScriptWriter
	Speech Synthesizer
}

func (a *AudioAdapter) Kind() output.Kind { return output.KindAudio }

func (a *AudioAdapter) GenerateScript(context.Context, Request) (ScriptResult, error) {
	return ScriptResult{}, notScriptFirst(output.KindAudio)
}

func (a *AudioAdapter) Generate(ctx context.Context, req Request) (MediaResult, error) {
	transcript := strings.TrimSpace(req.Script)
	if transcript == "" {
		var err error
		if transcript, err = a.Writer.WriteNarration(ctx, req.brief()); err != nil {
			return MediaResult{}, err
		}
	}
	voice := req.ref("voice_id")
	audio, err := a.Speech.Synthesize(ctx, tts.Request{
		Language:        req.Language.ISO2(),
		VoiceID:         voice,
		BackgroundMusic: req.ref("background_music_id"),
		Lines:           []tts.Line{{Text: transcript}},
	})
	if err != nil {
		return MediaResult{}, err
	}
	return MediaResult{
		AssetURL:        audio.URL,
		DurationSeconds: audio.DurationSeconds,
		Payload:         output.AudioPayload{Transcript: transcript, VoiceID: voice},
	}, nil
}

func (a *AudioAdapter) CheckStatus(context.Context, string) (RenderStatus, error) {
	return RenderStatus{}, synchronousOnly(output.KindAudio)
}

// QuizAdapter writes a comprehension quiz. It has no media file.
type QuizAdapter struct {
	Writer ScriptWriter
}

func (a *QuizAdapter) Kind() output.Kind { return output.KindQuiz }

func (a *QuizAdapter) GenerateScript(context.Context, Request) (ScriptResult, error) {
	return ScriptResult{}, notScriptFirst(output.KindQuiz)
}

func (a *QuizAdapter) Generate(ctx context.Context, req Request) (MediaResult, error) {
	quiz, err := a.Writer.WriteQuiz(ctx, req.brief())
	if err != nil {
		return MediaResult{}, err
	}
	return MediaResult{Payload: quiz}, nil
}

func (a *QuizAdapter) CheckStatus(context.Context, string) (RenderStatus, error) {
	return RenderStatus{}, synchronousOnly(output.KindQuiz)
}

// PodcastAdapter writes a two-host conversation and renders it with the
// speech backend.
type PodcastAdapter struct {
	Writer ScriptWriter
	Speech Synthesizer
}

func (a *PodcastAdapter) Kind() output.Kind { return output.KindPodcast }

func (a *PodcastAdapter) GenerateScript(ctx context.Context, req Request) (ScriptResult, error) {
	podcast, err := a.Writer.WritePodcast(ctx, req.brief())
	if err != nil {
		return ScriptResult{}, err
	}
	return ScriptResult{Script: FormatSegments(podcast.Segments, nil), Payload: podcast}, nil
}

func (a *PodcastAdapter) Generate(ctx context.Context, req Request) (MediaResult, error) {
	segments, _, err := ParseScript(req.Script)
	if err != nil {
		return MediaResult{}, err
	}
	audio, err := synthesizeSegments(ctx, a.Speech, req, segments)
	if err != nil {
		return MediaResult{}, err
	}
	return MediaResult{
		AssetURL:        audio.URL,
		DurationSeconds: audio.DurationSeconds,
		Payload:         output.PodcastPayload{Segments: segments},
	}, nil
}

func (a *PodcastAdapter) CheckStatus(context.Context, string) (RenderStatus, error) {
	return RenderStatus{}, synchronousOnly(output.KindPodcast)
}

// InteractivePodcastAdapter is a podcast with listener questions between
// segments. Questions are kept in the payload for the player; only the
// segments are spoken.
type InteractivePodcastAdapter struct {
	Writer ScriptWriter
	Speech Synthesizer
}

func (a *InteractivePodcastAdapter) Kind() output.Kind { return output.KindInteractivePodcast }

func (a *InteractivePodcastAdapter) GenerateScript(ctx context.Context, req Request) (ScriptResult, error) {
	podcast, err := a.Writer.WriteInteractivePodcast(ctx, req.brief())
	if err != nil {
		return ScriptResult{}, err
	}
	return ScriptResult{Script: FormatSegments(podcast.Segments, podcast.Prompts), Payload: podcast}, nil
}

func (a *InteractivePodcastAdapter) Generate(ctx context.Context, req Request) (MediaResult, error) {
	segments, prompts, err := ParseScript(req.Script)
	if err != nil {
		return MediaResult{}, err
	}
	audio, err := synthesizeSegments(ctx, a.Speech, req, segments)
	if err != nil {
		return MediaResult{}, err
	}
	return MediaResult{
		AssetURL:        audio.URL,
		DurationSeconds: audio.DurationSeconds,
		Payload:         output.InteractivePodcastPayload{Segments: segments, Prompts: prompts},
	}, nil
}

func (a *InteractivePodcastAdapter) CheckStatus(context.Context, string) (RenderStatus, error) {
	return RenderStatus{}, synchronousOnly(output.KindInteractivePodcast)
}

func synthesizeSegments(ctx context.Context, speech Synthesizer, req Request, segments []output.Segment) (tts.Audio, error) {
	lines := make([]tts.Line, len(segments))
	for i, s := range segments {
		lines[i] = tts.Line{Speaker: s.Speaker, Text: s.Text}
	}
	return speech.Synthesize(ctx, tts.Request{
		Language:        req.Language.ISO2(),
		VoiceID:         req.ref("voice_id"),
		BackgroundMusic: req.ref("background_music_id"),
		Lines:           lines,
	})
}

// VideoAdapter writes a presenter script and renders it on the avatar
// backend. Rendering completes asynchronously.
type VideoAdapter struct {
	Writer   ScriptWriter
	Renderer VideoRenderer
}

func (a *VideoAdapter) Kind() output.Kind { return output.KindVideo }

func (a *VideoAdapter) GenerateScript(ctx context.Context, req Request) (ScriptResult, error) {
	script, err := a.Writer.WriteVideoScript(ctx, req.brief())
	if err != nil {
		return ScriptResult{}, err
	}
	return ScriptResult{Script: script.Script, Payload: output.VideoPayload{Title: script.Title}}, nil
}

func (a *VideoAdapter) Generate(ctx context.Context, req Request) (MediaResult, error) {
	script := strings.TrimSpace(req.Script)
	if script == "" {
		return MediaResult{}, services.Wrap(services.ErrValidation, "generation", "render video", "script is empty", nil)
	}
	title := req.Title
	if vp, ok := req.Output.Payload.(output.VideoPayload); ok && vp.Title != "" {
		title = vp.Title
	}
	if title == "" {
		title = req.brief().Title
	}
	c := req.Output.Customization
	id, err := a.Renderer.CreateVideo(ctx, avatar.VideoRequest{
		Title:           title,
		Script:          script,
		Language:        req.Language.ISO2(),
		CharacterID:     req.ref("character_id"),
		VoiceID:         req.ref("voice_id"),
		TemplateID:      req.ref("template_id"),
		BackgroundMusic: req.ref("background_music_id"),
		IntroBumper:     req.ref("intro_bumper_id"),
		OutroBumper:     req.ref("outro_bumper_id"),
		AspectRatio:     c.AspectRatio,
		CallbackID:      req.Output.ID,
		CallbackURL:     req.CallbackURL,
	})
	if err != nil {
		return MediaResult{}, err
	}
	return MediaResult{ProviderID: id}, nil
}

func (a *VideoAdapter) CheckStatus(ctx context.Context, providerID string) (RenderStatus, error) {
	status, err := a.Renderer.VideoStatus(ctx, providerID)
	if err != nil {
		return RenderStatus{}, err
	}
	out := RenderStatus{
		AssetURL:        status.URL,
		DurationSeconds: int(math.Round(status.DurationSeconds)),
		Error:           status.Error,
	}
	switch status.Status {
	case avatar.StateCompleted:
		out.State = StateCompleted
	case avatar.StateFailed:
		out.State = StateFailed
	default:
		out.State = StateProcessing
	}
	return out, nil
}
