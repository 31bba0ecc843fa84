package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/database"
	"contentops/internal/services"
)

const tagColumns = "t.id, t.organization_id, t.name, t.description, t.category, t.created_at"

// EnsureTag returns the organization's tag with name, creating it if needed.
func (s *Store) EnsureTag(ctx context.Context, organizationID, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "ensure tag", "tag name is required", nil)
	}
	insert := s.builder().Insert("tags").
		Columns("id", "organization_id", "name", "created_at").
		Values(newID(), organizationID, name, database.FormatTime(time.Now())).
		Suffix("ON CONFLICT (organization_id, name) DO NOTHING")
	if _, err := s.q.Exec(ctx, insert); err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	query := s.builder().Select(tagColumns).From("tags t").
		Where(sq.Eq{"t.organization_id": organizationID, "t.name": name})
	tag, err := scanTag(s.q.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("load tag: %w", err)
	}
	return tag, nil
}

// AttachTag links a tag to an output. Attaching a tag the output already has
// is a no-op regardless of how it was first attached; the result reports
// whether a new link was created.
func (s *Store) AttachTag(ctx context.Context, outputID, tagID string, inherited bool, sourceOutputID string) (bool, error) {
	insert := s.builder().Insert("output_tags").
		Columns("output_id", "tag_id", "is_inherited", "source_output_id", "created_at").
		Values(outputID, tagID, database.BoolToInt(inherited), database.NullableString(sourceOutputID), database.FormatTime(time.Now())).
		Suffix("ON CONFLICT (output_id, tag_id) DO NOTHING")
	res, err := s.q.Exec(ctx, insert)
	if err != nil {
		return false, fmt.Errorf("attach tag: %w", err)
	}
	return database.RowsAffected(res) == 1, nil
}

// ListOutputTags returns the tags attached to an output, by name.
func (s *Store) ListOutputTags(ctx context.Context, outputID string) ([]OutputTag, error) {
	query := s.builder().
		Select("ot.output_id", "ot.is_inherited", "ot.source_output_id", "ot.created_at", tagColumns).
		From("output_tags ot").
		Join("tags t ON t.id = ot.tag_id").
		Where(sq.Eq{"ot.output_id": outputID}).
		OrderBy("t.name ASC")
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list output tags: %w", err)
	}
	defer rows.Close()

	var out []OutputTag
	for rows.Next() {
		var (
			ot                    OutputTag
			inherited             int
			source                sql.NullString
			linkedRaw, tagCreated string
		)
		if err := rows.Scan(&ot.OutputID, &inherited, &source, &linkedRaw,
			&ot.Tag.ID, &ot.Tag.OrganizationID, &ot.Tag.Name, &ot.Tag.Description, &ot.Tag.Category, &tagCreated); err != nil {
			return nil, fmt.Errorf("scan output tag: %w", err)
		}
		ot.IsInherited = inherited != 0
		ot.SourceOutputID = source.String
		ot.CreatedAt, _ = database.ParseTime(linkedRaw)
		ot.Tag.CreatedAt, _ = database.ParseTime(tagCreated)
		out = append(out, ot)
	}
	return out, rows.Err()
}

func scanTag(scanner database.RowScanner) (*Tag, error) {
	var (
		tag        Tag
		createdRaw string
	)
	if err := scanner.Scan(&tag.ID, &tag.OrganizationID, &tag.Name, &tag.Description, &tag.Category, &createdRaw); err != nil {
		return nil, err
	}
	tag.CreatedAt, _ = database.ParseTime(createdRaw)
	return &tag, nil
}
