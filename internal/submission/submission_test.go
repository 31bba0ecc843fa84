package submission_test

import (
	"testing"

	"contentops/internal/output"
	"contentops/internal/submission"
)

func TestFlagOptionsDefaultToTrue(t *testing.T) {
	flags := submission.FlagOptions{}.Resolve()
	if len(flags.Kinds()) != len(output.AllKinds()) {
		t.Fatalf("expected every kind enabled, got %v", flags.Kinds())
	}

	off := false
	flags = submission.FlagOptions{Audio: &off, Quiz: &off}.Resolve()
	kinds := flags.Kinds()
	want := []output.Kind{output.KindPodcast, output.KindVideo, output.KindInteractivePodcast}
	if len(kinds) != len(want) {
		t.Fatalf("got %v want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got %v want %v", kinds, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := submission.ParseStatus("partial_complete"); !ok || s != submission.StatusPartialComplete {
		t.Fatalf("ParseStatus: %v %v", s, ok)
	}
	if _, ok := submission.ParseStatus("done"); ok {
		t.Fatal("expected unknown status")
	}
}
