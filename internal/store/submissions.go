package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/database"
	"contentops/internal/language"
	"contentops/internal/submission"
)

const submissionColumns = "id, article_id, organization_id, language, generate_audio, generate_podcast, generate_video, generate_quiz, generate_interactive_podcast, status, created_at, updated_at"

// CreateSubmission inserts a submission in PENDING.
func (s *Store) CreateSubmission(ctx context.Context, sub *submission.Submission) error {
	now := time.Now().UTC()
	if sub.ID == "" {
		sub.ID = newID()
	}
	sub.Status = submission.StatusPending
	sub.CreatedAt, sub.UpdatedAt = now, now
	insert := s.builder().Insert("submissions").
		Columns("id", "article_id", "organization_id", "language",
			"generate_audio", "generate_podcast", "generate_video", "generate_quiz", "generate_interactive_podcast",
			"status", "created_at", "updated_at").
		Values(sub.ID, sub.ArticleID, sub.OrganizationID, string(sub.Language),
			database.BoolToInt(sub.Flags.Audio), database.BoolToInt(sub.Flags.Podcast), database.BoolToInt(sub.Flags.Video),
			database.BoolToInt(sub.Flags.Quiz), database.BoolToInt(sub.Flags.InteractivePodcast),
			string(sub.Status), database.FormatTime(now), database.FormatTime(now))
	if _, err := s.q.Exec(ctx, insert); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission fetches a submission by id.
func (s *Store) GetSubmission(ctx context.Context, id string) (*submission.Submission, error) {
	query := s.builder().Select(submissionColumns).From("submissions").Where(sq.Eq{"id": id})
	sub, err := scanSubmission(s.q.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, notFound("submission", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// SetSubmissionStatus moves a submission from one status to another. It
// reports false when the submission was no longer in the expected status.
func (s *Store) SetSubmissionStatus(ctx context.Context, id string, from, to submission.Status) (bool, error) {
	update := s.builder().Update("submissions").
		Set("status", string(to)).
		Set("updated_at", database.FormatTime(time.Now())).
		Where(sq.Eq{"id": id, "status": string(from)})
	res, err := s.q.Exec(ctx, update)
	if err != nil {
		return false, fmt.Errorf("update submission status: %w", err)
	}
	return database.RowsAffected(res) == 1, nil
}

// ListSubmissionsByArticle returns every submission of an article, oldest first.
func (s *Store) ListSubmissionsByArticle(ctx context.Context, articleID string) ([]*submission.Submission, error) {
	query := s.builder().Select(submissionColumns).From("submissions").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("created_at ASC", "id ASC")
	return s.querySubmissions(ctx, query)
}

// SubmissionFilter narrows ListSubmissions.
type SubmissionFilter struct {
	OrganizationID string
	Statuses       []submission.Status
	Language       language.Language
	Limit          uint64
}

// ListSubmissions returns the most recent submissions matching filter.
func (s *Store) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*submission.Submission, error) {
	query := s.builder().Select(submissionColumns).From("submissions").OrderBy("created_at DESC", "id DESC")
	if filter.OrganizationID != "" {
		query = query.Where(sq.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.Language != "" {
		query = query.Where(sq.Eq{"language": string(filter.Language)})
	}
	if len(filter.Statuses) > 0 {
		values := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			values[i] = string(status)
		}
		query = query.Where(sq.Eq{"status": values})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return s.querySubmissions(ctx, query)
}

func (s *Store) querySubmissions(ctx context.Context, query sq.SelectBuilder) ([]*submission.Submission, error) {
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*submission.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(scanner database.RowScanner) (*submission.Submission, error) {
	var (
		sub                                      submission.Submission
		lang, status                             string
		audio, podcast, video, quiz, interactive int
		createdRaw, updatedRaw                   string
	)
	if err := scanner.Scan(&sub.ID, &sub.ArticleID, &sub.OrganizationID, &lang,
		&audio, &podcast, &video, &quiz, &interactive,
		&status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	sub.Language = language.Language(lang)
	sub.Status = submission.Status(status)
	sub.Flags = submission.Flags{
		Audio:              audio != 0,
		Podcast:            podcast != 0,
		Video:              video != 0,
		Quiz:               quiz != 0,
		InteractivePodcast: interactive != 0,
	}
	sub.CreatedAt, _ = database.ParseTime(createdRaw)
	sub.UpdatedAt, _ = database.ParseTime(updatedRaw)
	return &sub, nil
}
