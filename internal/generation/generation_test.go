package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"contentops/internal/article"
	"contentops/internal/generation"
	"contentops/internal/language"
	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/services/avatar"
	"contentops/internal/services/llm"
	"contentops/internal/services/tts"
)

type fakeWriter struct {
	briefs []llm.Brief
}

func (f *fakeWriter) WriteNarration(_ context.Context, b llm.Brief) (string, error) {
	f.briefs = append(f.briefs, b)
	return "narration of " + b.Title, nil
}

func (f *fakeWriter) WritePodcast(_ context.Context, b llm.Brief) (output.PodcastPayload, error) {
	f.briefs = append(f.briefs, b)
	return output.PodcastPayload{Segments: []output.Segment{
		{Speaker: "ALEX", Text: "Welcome."},
		{Speaker: "SAM", Text: "Today: rail strikes."},
	}}, nil
}

func (f *fakeWriter) WriteInteractivePodcast(_ context.Context, b llm.Brief) (output.InteractivePodcastPayload, error) {
	f.briefs = append(f.briefs, b)
	return output.InteractivePodcastPayload{
		Segments: []output.Segment{{Speaker: "ALEX", Text: "Intro."}, {Speaker: "SAM", Text: "Details."}},
		Prompts:  []output.InteractivePrompt{{AfterSegment: 0, Question: "What do you expect?"}},
	}, nil
}

func (f *fakeWriter) WriteVideoScript(_ context.Context, b llm.Brief) (llm.VideoScript, error) {
	f.briefs = append(f.briefs, b)
	return llm.VideoScript{Title: "Strike explained", Script: "Good evening."}, nil
}

func (f *fakeWriter) WriteQuiz(_ context.Context, b llm.Brief) (output.QuizPayload, error) {
	f.briefs = append(f.briefs, b)
	return output.QuizPayload{Questions: []output.QuizQuestion{{Prompt: "Who?", Choices: []string{"a", "b"}}}}, nil
}

type fakeSpeech struct {
	requests []tts.Request
	err      error
}

func (f *fakeSpeech) Synthesize(_ context.Context, req tts.Request) (tts.Audio, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return tts.Audio{}, f.err
	}
	return tts.Audio{URL: "https://cdn.test/audio.mp3", DurationSeconds: 42}, nil
}

type fakeRenderer struct {
	requests []avatar.VideoRequest
	status   avatar.VideoStatus
}

func (f *fakeRenderer) CreateVideo(_ context.Context, req avatar.VideoRequest) (string, error) {
	f.requests = append(f.requests, req)
	return "vid-1", nil
}

func (f *fakeRenderer) VideoStatus(context.Context, string) (avatar.VideoStatus, error) {
	return f.status, nil
}

func newRequest(kind output.Kind) generation.Request {
	return generation.Request{
		Output:   &output.Output{ID: "out-1", Kind: kind},
		Article:  &article.Article{Title: "Rail strike", Body: "Trains stopped.", Category: "news"},
		Language: language.Language("HINDI"),
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := generation.NewDefaultRegistry(&fakeWriter{}, &fakeSpeech{}, &fakeRenderer{})
	if got := len(reg.Kinds()); got != len(output.AllKinds()) {
		t.Fatalf("expected every kind registered, got %d", got)
	}
	for _, kind := range output.AllKinds() {
		adapter, err := reg.Get(kind)
		if err != nil {
			t.Fatalf("Get(%s): %v", kind, err)
		}
		if adapter.Kind() != kind {
			t.Fatalf("adapter for %s reports %s", kind, adapter.Kind())
		}
	}
	if _, err := generation.NewRegistry().Get(output.KindAudio); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAudioAdapterNarratesAndSynthesizes(t *testing.T) {
	writer, speech := &fakeWriter{}, &fakeSpeech{}
	adapter := &generation.AudioAdapter{Writer: writer, Speech: speech}
	req := newRequest(output.KindAudio)
	req.ProviderRefs = map[string]string{"voice_id": "voice-ext"}

	res, err := adapter.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Pending() || res.AssetURL == "" || res.DurationSeconds != 42 {
		t.Fatalf("unexpected result: %+v", res)
	}
	payload, ok := res.Payload.(output.AudioPayload)
	if !ok || payload.Transcript != "narration of Rail strike" || payload.VoiceID != "voice-ext" {
		t.Fatalf("unexpected payload: %#v", res.Payload)
	}
	if writer.briefs[0].Language != "Hindi" {
		t.Fatalf("expected display language in brief, got %q", writer.briefs[0].Language)
	}
	if speech.requests[0].Language != "hi" || speech.requests[0].VoiceID != "voice-ext" {
		t.Fatalf("unexpected speech request: %+v", speech.requests[0])
	}
	if _, err := adapter.GenerateScript(context.Background(), req); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("audio has no script step, got %v", err)
	}
}

func TestAudioAdapterPropagatesBackendError(t *testing.T) {
	speech := &fakeSpeech{err: services.Wrap(services.ErrUpstream, "tts", "synthesize", "", nil)}
	adapter := &generation.AudioAdapter{Writer: &fakeWriter{}, Speech: speech}
	if _, err := adapter.Generate(context.Background(), newRequest(output.KindAudio)); !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestQuizAdapterHasNoAsset(t *testing.T) {
	adapter := &generation.QuizAdapter{Writer: &fakeWriter{}}
	res, err := adapter.Generate(context.Background(), newRequest(output.KindQuiz))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.AssetURL != "" || res.Pending() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if quiz, ok := res.Payload.(output.QuizPayload); !ok || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected payload: %#v", res.Payload)
	}
}

func TestPodcastAdapterRendersEditedScript(t *testing.T) {
	speech := &fakeSpeech{}
	adapter := &generation.PodcastAdapter{Writer: &fakeWriter{}, Speech: speech}
	req := newRequest(output.KindPodcast)

	script, err := adapter.GenerateScript(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if script.Script != "ALEX: Welcome.\nSAM: Today: rail strikes." {
		t.Fatalf("unexpected script: %q", script.Script)
	}

	req.Script = script.Script + "\nALEX: Thanks for listening."
	res, err := adapter.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	payload := res.Payload.(output.PodcastPayload)
	if len(payload.Segments) != 3 || payload.Segments[1].Text != "Today: rail strikes." {
		t.Fatalf("edited script not honored: %+v", payload.Segments)
	}
	if len(speech.requests[0].Lines) != 3 {
		t.Fatalf("expected three spoken lines, got %+v", speech.requests[0].Lines)
	}
}

func TestInteractivePodcastRoundTripsPrompts(t *testing.T) {
	adapter := &generation.InteractivePodcastAdapter{Writer: &fakeWriter{}, Speech: &fakeSpeech{}}
	req := newRequest(output.KindInteractivePodcast)
	script, err := adapter.GenerateScript(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if !strings.Contains(script.Script, "[QUESTION] What do you expect?") {
		t.Fatalf("prompt missing from script: %q", script.Script)
	}
	req.Script = script.Script
	res, err := adapter.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	payload := res.Payload.(output.InteractivePodcastPayload)
	if len(payload.Prompts) != 1 || payload.Prompts[0].AfterSegment != 0 {
		t.Fatalf("unexpected prompts: %+v", payload.Prompts)
	}
}

func TestVideoAdapterIsAsynchronous(t *testing.T) {
	renderer := &fakeRenderer{}
	adapter := &generation.VideoAdapter{Writer: &fakeWriter{}, Renderer: renderer}
	req := newRequest(output.KindVideo)
	req.Output.Customization = output.Customization{CharacterID: "char-1", AspectRatio: "9:16"}
	req.Output.Payload = output.VideoPayload{Title: "Strike explained"}
	req.ProviderRefs = map[string]string{"character_id": "avatar-ext"}
	req.CallbackURL = "https://ops.test/webhooks/video"

	if _, err := adapter.Generate(context.Background(), req); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty script to be rejected, got %v", err)
	}

	req.Script = "Good evening."
	res, err := adapter.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Pending() || res.ProviderID != "vid-1" {
		t.Fatalf("expected pending render, got %+v", res)
	}
	sent := renderer.requests[len(renderer.requests)-1]
	if sent.CharacterID != "avatar-ext" || sent.AspectRatio != "9:16" || sent.Title != "Strike explained" {
		t.Fatalf("unexpected render request: %+v", sent)
	}
	if sent.CallbackID != "out-1" || sent.CallbackURL != req.CallbackURL {
		t.Fatalf("callback not forwarded: %+v", sent)
	}
}

func TestVideoAdapterCheckStatus(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  string
	}{
		{"completed", avatar.StateCompleted, generation.StateCompleted},
		{"failed", avatar.StateFailed, generation.StateFailed},
		{"processing", avatar.StateProcessing, generation.StateProcessing},
		{"unknown", "queued", generation.StateProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &fakeRenderer{status: avatar.VideoStatus{Status: tt.state, URL: "u", DurationSeconds: 12.6}}
			adapter := &generation.VideoAdapter{Writer: &fakeWriter{}, Renderer: renderer}
			got, err := adapter.CheckStatus(context.Background(), "vid-1")
			if err != nil {
				t.Fatalf("CheckStatus: %v", err)
			}
			if got.State != tt.want || got.DurationSeconds != 13 {
				t.Fatalf("unexpected status: %+v", got)
			}
		})
	}
}

func TestParseScript(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		segments int
		prompts  int
		wantErr  bool
	}{
		{name: "speakers", script: "A: one\nB: two", segments: 2},
		{name: "continuation", script: "A: one\nstill one\nB: two", segments: 2},
		{name: "prose colon", script: "A: the time was 10:30. Then, it rained: hard", segments: 1},
		{name: "no speaker", script: "just narration", segments: 1},
		{name: "question", script: "A: one\n[QUESTION] why?\nB: two", segments: 2, prompts: 1},
		{name: "leading question dropped", script: "[QUESTION] why?\nA: one", segments: 1},
		{name: "empty", script: " \n\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, prompts, err := generation.ParseScript(tt.script)
			if tt.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScript: %v", err)
			}
			if len(segments) != tt.segments || len(prompts) != tt.prompts {
				t.Fatalf("got %d segments %d prompts: %+v %+v", len(segments), len(prompts), segments, prompts)
			}
		})
	}
}
