package services_test

import (
	"context"
	"testing"

	"contentops/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOutputID(ctx, "out-1")
	ctx = services.WithSubmissionID(ctx, "sub-1")
	ctx = services.WithJob(ctx, "job-1", "render_media")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.OutputIDFromContext(ctx); !ok || id != "out-1" {
		t.Fatalf("unexpected output id: %v %v", id, ok)
	}
	if id, ok := services.SubmissionIDFromContext(ctx); !ok || id != "sub-1" {
		t.Fatalf("unexpected submission id: %v %v", id, ok)
	}
	if id, kind, ok := services.JobFromContext(ctx); !ok || id != "job-1" || kind != "render_media" {
		t.Fatalf("unexpected job: %v %v %v", id, kind, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithLane(ctx, "")
	ctx = services.WithOutputID(ctx, "")
	if _, ok := services.LaneFromContext(ctx); ok {
		t.Fatal("expected no lane value")
	}
	if _, ok := services.OutputIDFromContext(ctx); ok {
		t.Fatal("expected no output value")
	}
}
