package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/article"
	"contentops/internal/database"
)

const articleColumns = "id, organization_id, title, body, category, source_url, created_at, updated_at"

// CreateArticle inserts a new article, assigning its id and timestamps.
func (s *Store) CreateArticle(ctx context.Context, a *article.Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt, a.UpdatedAt = now, now
	insert := s.builder().Insert("articles").
		Columns("id", "organization_id", "title", "body", "category", "source_url", "created_at", "updated_at").
		Values(a.ID, a.OrganizationID, a.Title, a.Body, a.Category, a.SourceURL, database.FormatTime(now), database.FormatTime(now))
	if _, err := s.q.Exec(ctx, insert); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetArticle fetches an article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (*article.Article, error) {
	query := s.builder().Select(articleColumns).From("articles").Where(sq.Eq{"id": id})
	a, err := scanArticle(s.q.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, notFound("article", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// ListArticles returns an organization's most recent articles.
func (s *Store) ListArticles(ctx context.Context, organizationID string, limit uint64) ([]*article.Article, error) {
	query := s.builder().Select(articleColumns).From("articles").OrderBy("created_at DESC")
	if organizationID != "" {
		query = query.Where(sq.Eq{"organization_id": organizationID})
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []*article.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanArticle(scanner database.RowScanner) (*article.Article, error) {
	var (
		a                      article.Article
		category, sourceURL    sql.NullString
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&a.ID, &a.OrganizationID, &a.Title, &a.Body, &category, &sourceURL, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	a.Category = category.String
	a.SourceURL = sourceURL.String
	a.CreatedAt, _ = database.ParseTime(createdRaw)
	a.UpdatedAt, _ = database.ParseTime(updatedRaw)
	return &a, nil
}
