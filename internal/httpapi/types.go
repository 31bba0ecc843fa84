package httpapi

import (
	"time"

	"contentops/internal/article"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/store"
	"contentops/internal/submission"
)

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type articleRequest struct {
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	HTML           string `json:"html"`
	Category       string `json:"category"`
	SourceURL      string `json:"source_url"`
}

type submissionRequest struct {
	OrganizationID string   `json:"organization_id"`
	Languages      []string `json:"languages"`
	submission.FlagOptions
}

type scriptRequest struct {
	Script string `json:"script"`
}

type tagRequest struct {
	Name string `json:"name"`
}

type videoRequest struct {
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	Script         string `json:"script"`
	output.Customization
}

// Article is the transport form of an article.
type Article struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Category       string `json:"category,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// Submission is a submission with its outputs.
type Submission struct {
	ID             string           `json:"id"`
	ArticleID      string           `json:"article_id"`
	OrganizationID string           `json:"organization_id"`
	Language       string           `json:"language"`
	Status         string           `json:"status"`
	Flags          submission.Flags `json:"flags"`
	Outputs        []Output         `json:"outputs,omitempty"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

// Output is the transport form of an output.
type Output struct {
	ID              string               `json:"id"`
	SubmissionID    string               `json:"submission_id,omitempty"`
	Kind            string               `json:"kind"`
	Status          string               `json:"status"`
	Error           string               `json:"error,omitempty"`
	IsApproved      bool                 `json:"is_approved"`
	ApprovedAt      string               `json:"approved_at,omitempty"`
	Script          string               `json:"script,omitempty"`
	Payload         output.Payload       `json:"payload,omitempty"`
	Customization   output.Customization `json:"customization"`
	AssetURL        string               `json:"asset_url,omitempty"`
	DurationSeconds int                  `json:"duration_seconds,omitempty"`
	Generation      int                  `json:"generation"`
	Tags            []Tag                `json:"tags,omitempty"`
	UpdatedAt       string               `json:"updated_at"`
}

// Tag is an attached tag.
type Tag struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Inherited      bool   `json:"inherited,omitempty"`
	SourceOutputID string `json:"source_output_id,omitempty"`
}

// Status summarizes daemon state.
type Status struct {
	Outputs map[string]int `json:"outputs"`
	Jobs    map[string]int `json:"jobs"`
	Workers *WorkerStatus  `json:"workers,omitempty"`
}

// WorkerStatus reports the worker pool.
type WorkerStatus struct {
	Running   bool   `json:"running"`
	Lanes     int    `json:"lanes"`
	Handled   int64  `json:"handled"`
	LastError string `json:"last_error,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func fromArticle(a *article.Article) Article {
	return Article{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		Title:          a.Title,
		Body:           a.Body,
		Category:       a.Category,
		SourceURL:      a.SourceURL,
		CreatedAt:      formatTime(a.CreatedAt),
	}
}

func fromSubmission(sub *submission.Submission) Submission {
	return Submission{
		ID:             sub.ID,
		ArticleID:      sub.ArticleID,
		OrganizationID: sub.OrganizationID,
		Language:       string(sub.Language),
		Status:         string(sub.Status),
		Flags:          sub.Flags,
		CreatedAt:      formatTime(sub.CreatedAt),
		UpdatedAt:      formatTime(sub.UpdatedAt),
	}
}

func fromSubmissionView(view *orchestrator.SubmissionView) Submission {
	out := fromSubmission(view.Submission)
	out.Outputs = make([]Output, 0, len(view.Outputs))
	for _, o := range view.Outputs {
		out.Outputs = append(out.Outputs, fromOutput(o.Output, o.Tags))
	}
	return out
}

func fromOutput(o *output.Output, tags []store.OutputTag) Output {
	out := Output{
		ID:              o.ID,
		SubmissionID:    o.SubmissionID,
		Kind:            string(o.Kind),
		Status:          string(o.Status),
		Error:           o.Error,
		IsApproved:      o.IsApproved,
		Script:          o.Script,
		Payload:         o.Payload,
		Customization:   o.Customization,
		AssetURL:        o.AssetURL,
		DurationSeconds: o.DurationSeconds,
		Generation:      o.Generation,
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
	if o.ApprovedAt != nil {
		out.ApprovedAt = formatTime(*o.ApprovedAt)
	}
	for _, t := range tags {
		out.Tags = append(out.Tags, Tag{
			ID:             t.Tag.ID,
			Name:           t.Tag.Name,
			Inherited:      t.IsInherited,
			SourceOutputID: t.SourceOutputID,
		})
	}
	return out
}
