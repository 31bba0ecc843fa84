package services

import "context"

type contextKey string

const (
	outputIDKey     contextKey = "output_id"
	submissionIDKey contextKey = "submission_id"
	jobIDKey        contextKey = "job_id"
	jobKindKey      contextKey = "job_kind"
	laneKey         contextKey = "lane"
	requestIDKey    contextKey = "request_id"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOutputID annotates context with the output identifier.
func WithOutputID(ctx context.Context, id string) context.Context {
	return withString(ctx, outputIDKey, id)
}

// OutputIDFromContext extracts the output identifier if present.
func OutputIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, outputIDKey)
}

// WithSubmissionID annotates context with the submission identifier.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return withString(ctx, submissionIDKey, id)
}

// SubmissionIDFromContext extracts the submission identifier if present.
func SubmissionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, submissionIDKey)
}

// WithJob annotates context with the queue job identifier and kind.
func WithJob(ctx context.Context, id, kind string) context.Context {
	return withString(withString(ctx, jobIDKey, id), jobKindKey, kind)
}

// JobFromContext returns the job identifier and kind if present.
func JobFromContext(ctx context.Context) (id string, kind string, ok bool) {
	id, ok = stringFrom(ctx, jobIDKey)
	kind, _ = stringFrom(ctx, jobKindKey)
	return id, kind, ok
}

// WithLane annotates context with the worker lane name.
func WithLane(ctx context.Context, lane string) context.Context {
	return withString(ctx, laneKey, lane)
}

// LaneFromContext returns the lane name if present.
func LaneFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, laneKey)
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}
