package orchestrator

import (
	"context"
	"errors"
	"strings"

	"contentops/internal/article"
	"contentops/internal/language"
	"contentops/internal/logging"
	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/store"
	"contentops/internal/submission"
)

// ArticleRequest uploads source content. When HTML is set the title and body
// are extracted from it; explicit values win.
type ArticleRequest struct {
	OrganizationID string
	Title          string
	Body           string
	HTML           string
	Category       string
	SourceURL      string
}

// CreateArticle stores an article.
func (o *Orchestrator) CreateArticle(ctx context.Context, req ArticleRequest) (*article.Article, error) {
	a := &article.Article{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Title:          strings.TrimSpace(req.Title),
		Body:           strings.TrimSpace(req.Body),
		Category:       strings.TrimSpace(req.Category),
		SourceURL:      strings.TrimSpace(req.SourceURL),
	}
	if strings.TrimSpace(req.HTML) != "" {
		extracted, err := article.FromHTML(req.HTML)
		if err != nil {
			return nil, err
		}
		if a.Title == "" {
			a.Title = extracted.Title
		}
		if a.Body == "" {
			a.Body = extracted.Body
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := o.store.CreateArticle(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticle loads an article scoped to an organization. An empty
// organization id skips the scope check (operator CLI).
func (o *Orchestrator) GetArticle(ctx context.Context, organizationID, articleID string) (*article.Article, error) {
	a, err := o.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if organizationID != "" && a.OrganizationID != organizationID {
		return nil, services.Wrap(services.ErrNotFound, "orchestrator", "article", articleID+" not found", nil)
	}
	return a, nil
}

// CreateRequest asks for derived media of one article in several languages.
type CreateRequest struct {
	ArticleID      string
	OrganizationID string
	// Languages accepts names, ISO codes and BCP 47 tags. Empty means ENGLISH.
	Languages []string
	Flags     submission.FlagOptions
}

// CreateSubmission creates one submission per language with an output per
// enabled kind and enqueues each output's first job.
//
// Enqueue failures do not undo anything: the affected outputs stay PENDING
// for DispatchPending and the failures come back joined once every language
// has been processed.
func (o *Orchestrator) CreateSubmission(ctx context.Context, req CreateRequest) ([]*submission.Submission, error) {
	a, err := o.GetArticle(ctx, req.OrganizationID, req.ArticleID)
	if err != nil {
		return nil, err
	}
	languages, err := language.NormalizeList(req.Languages)
	if err != nil {
		return nil, err
	}
	flags := req.Flags.Resolve()
	kinds := flags.Kinds()
	if len(kinds) == 0 {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "create submission", "at least one media type must be enabled", nil)
	}

	var (
		created     []*submission.Submission
		enqueueErrs []error
	)
	for _, lang := range languages {
		sub := &submission.Submission{
			ArticleID:      a.ID,
			OrganizationID: a.OrganizationID,
			Language:       lang,
			Flags:          flags,
		}
		outputs := make([]*output.Output, 0, len(kinds))
		err := o.store.WithTx(ctx, func(tx *store.Store) error {
			outputs = outputs[:0]
			if err := tx.CreateSubmission(ctx, sub); err != nil {
				return err
			}
			for _, kind := range kinds {
				out := &output.Output{SubmissionID: sub.ID, OrganizationID: a.OrganizationID, Kind: kind}
				if err := tx.CreateOutput(ctx, out); err != nil {
					return err
				}
				outputs = append(outputs, out)
			}
			return nil
		})
		if err != nil {
			return created, errors.Join(append(enqueueErrs, err)...)
		}
		created = append(created, sub)

		logger := o.logger.With(logging.String(logging.FieldSubmissionID, sub.ID))
		for _, out := range outputs {
			if err := o.dispatch(ctx, out); err != nil {
				logging.WarnWithContext(logger, "first job enqueue failed", "enqueue_failed",
					logging.String(logging.FieldOutputID, out.ID),
					logging.String("kind", string(out.Kind)),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the pending sweep retries dispatch"),
					logging.String(logging.FieldImpact, "output stays PENDING until dispatched"),
				)
				enqueueErrs = append(enqueueErrs, err)
			}
		}
		o.Recompute(ctx, sub.ID)
		if refreshed, err := o.store.GetSubmission(ctx, sub.ID); err == nil {
			*sub = *refreshed
		}
		logger.Info("submission created",
			logging.String(logging.FieldEventType, "submission_created"),
			logging.String("language", string(lang)),
			logging.Int("outputs", len(outputs)))
	}
	return created, errors.Join(enqueueErrs...)
}

// OutputView is an output with its tags.
type OutputView struct {
	*output.Output
	Tags []store.OutputTag
}

// SubmissionView is a submission with its outputs.
type SubmissionView struct {
	*submission.Submission
	Outputs []OutputView
}

// GetSubmission loads a submission with its outputs and their tags.
func (o *Orchestrator) GetSubmission(ctx context.Context, submissionID string) (*SubmissionView, error) {
	sub, err := o.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	outputs, err := o.store.ListOutputsBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	view := &SubmissionView{Submission: sub, Outputs: make([]OutputView, 0, len(outputs))}
	for _, out := range outputs {
		tags, err := o.store.ListOutputTags(ctx, out.ID)
		if err != nil {
			return nil, err
		}
		view.Outputs = append(view.Outputs, OutputView{Output: out, Tags: tags})
	}
	return view, nil
}
