package aggregate_test

import (
	"context"
	"testing"

	"contentops/internal/aggregate"
	"contentops/internal/language"
	"contentops/internal/notifications"
	"contentops/internal/output"
	"contentops/internal/store"
	"contentops/internal/submission"
	"contentops/internal/testsupport"
)

func TestAggregate(t *testing.T) {
	const (
		pending    = output.StatusPending
		processing = output.StatusProcessing
		ready      = output.StatusScriptReady
		completed  = output.StatusCompleted
		failed     = output.StatusFailed
	)
	tests := []struct {
		name     string
		statuses []output.Status
		want     submission.Status
	}{
		{"empty", nil, submission.StatusPending},
		{"all completed", []output.Status{completed, completed}, submission.StatusCompleted},
		{"single pending", []output.Status{pending}, submission.StatusProcessing},
		{"in flight beats failure", []output.Status{processing, failed, completed}, submission.StatusProcessing},
		{"all failed", []output.Status{failed, failed}, submission.StatusFailed},
		{"failed with completed", []output.Status{failed, completed}, submission.StatusPartialComplete},
		{"failed with script ready", []output.Status{failed, ready}, submission.StatusPartialComplete},
		{"awaiting review", []output.Status{ready, completed}, submission.StatusPartialComplete},
		{"only script ready", []output.Status{ready}, submission.StatusPartialComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aggregate.Aggregate(tt.statuses); got != tt.want {
				t.Fatalf("Aggregate(%v) = %s, want %s", tt.statuses, got, tt.want)
			}
		})
	}
}

type countingHook struct{ calls []string }

func (h *countingHook) OnSubmissionCompleted(_ context.Context, submissionID string) {
	h.calls = append(h.calls, submissionID)
}

func TestRecomputeFiresCompletionHookOnce(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	a := testsupport.NewArticle(t, st, "org-1", "Budget vote")
	sub := &submission.Submission{ArticleID: a.ID, OrganizationID: "org-1", Language: language.Canonical,
		Flags: submission.Flags{Audio: true, Quiz: true}}
	if err := st.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	var outs []*output.Output
	for _, kind := range sub.Flags.Kinds() {
		o := &output.Output{SubmissionID: sub.ID, OrganizationID: "org-1", Kind: kind}
		if err := st.CreateOutput(ctx, o); err != nil {
			t.Fatalf("CreateOutput: %v", err)
		}
		outs = append(outs, o)
	}

	hook := &countingHook{}
	recorder := &notifications.Recorder{}
	r := aggregate.NewRecomputer(st, hook, recorder, nil)

	for _, o := range outs {
		if _, err := st.UpdateOutput(ctx, o.ID, store.OutputGuard{Status: output.StatusPending}, output.StatusCompleted, store.OutputPatch{}); err != nil {
			t.Fatalf("UpdateOutput: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := r.Recompute(ctx, sub.ID)
		if err != nil {
			t.Fatalf("Recompute #%d: %v", i, err)
		}
		if got != submission.StatusCompleted {
			t.Fatalf("Recompute #%d = %s, want COMPLETED", i, got)
		}
	}
	if len(hook.calls) != 1 || hook.calls[0] != sub.ID {
		t.Fatalf("expected exactly one completion hook call, got %v", hook.calls)
	}
	if recorder.Count(notifications.EventSubmissionCompleted) != 1 {
		t.Fatalf("expected one completion notification, got %+v", recorder.Events)
	}
	if title := recorder.Events[0].Payload["title"]; title != "Budget vote" {
		t.Fatalf("expected article title in payload, got %v", title)
	}
}

func TestRecomputeIgnoresStandaloneOutputs(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	r := aggregate.NewRecomputer(st, nil, nil, nil)
	got, err := r.Recompute(context.Background(), "")
	if err != nil || got != "" {
		t.Fatalf("expected no-op, got %q err=%v", got, err)
	}
}
