package output_test

import (
	"errors"
	"testing"

	"contentops/internal/output"
	"contentops/internal/services"
)

func TestCanTransitionMatchesEdgeTable(t *testing.T) {
	legal := map[[2]output.Status]bool{
		{output.StatusPending, output.StatusProcessing}:     true,
		{output.StatusProcessing, output.StatusScriptReady}: true,
		{output.StatusScriptReady, output.StatusProcessing}: true,
		{output.StatusProcessing, output.StatusCompleted}:   true,
		{output.StatusProcessing, output.StatusFailed}:      true,
	}

	for _, kind := range output.AllKinds() {
		for _, from := range output.AllStatuses() {
			for _, to := range output.AllStatuses() {
				want := legal[[2]output.Status{from, to}]
				if (from == output.StatusScriptReady || to == output.StatusScriptReady) && !kind.ScriptFirst() {
					want = false
				}
				err := output.CanTransition(kind, from, to)
				if want && err != nil {
					t.Fatalf("%s %s->%s: unexpected error %v", kind, from, to, err)
				}
				if !want {
					if err == nil {
						t.Fatalf("%s %s->%s: expected rejection", kind, from, to)
					}
					if !errors.Is(err, services.ErrInvalidState) {
						t.Fatalf("%s %s->%s: expected invalid state, got %v", kind, from, to, err)
					}
				}
			}
		}
	}
}

func TestReentryOnlyFromTerminal(t *testing.T) {
	for _, status := range output.AllStatuses() {
		err := output.Reentry(output.KindVideo, status)
		if status.IsTerminal() && err != nil {
			t.Fatalf("regenerate from %s should be allowed: %v", status, err)
		}
		if !status.IsTerminal() && !errors.Is(err, services.ErrInvalidState) {
			t.Fatalf("regenerate from %s should be invalid state, got %v", status, err)
		}
	}
}

func TestCanApproveRequiresCompleted(t *testing.T) {
	if err := output.CanApprove(output.StatusCompleted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := output.CanApprove(output.StatusScriptReady); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestScriptFirstKinds(t *testing.T) {
	want := map[output.Kind]bool{
		output.KindAudio:              false,
		output.KindQuiz:               false,
		output.KindPodcast:            true,
		output.KindVideo:              true,
		output.KindInteractivePodcast: true,
	}
	for kind, scriptFirst := range want {
		if kind.ScriptFirst() != scriptFirst {
			t.Errorf("%s.ScriptFirst() = %v", kind, kind.ScriptFirst())
		}
	}
}

func TestParseKindAndStatus(t *testing.T) {
	if k, ok := output.ParseKind("Interactive-Podcast"); !ok || k != output.KindInteractivePodcast {
		t.Fatalf("ParseKind dashed: %v %v", k, ok)
	}
	if _, ok := output.ParseKind("slideshow"); ok {
		t.Fatal("expected unknown kind")
	}
	if s, ok := output.ParseStatus("script_ready"); !ok || s != output.StatusScriptReady {
		t.Fatalf("ParseStatus: %v %v", s, ok)
	}
}
