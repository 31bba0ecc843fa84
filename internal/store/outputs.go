package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/database"
	"contentops/internal/output"
)

const outputColumns = "id, submission_id, organization_id, kind, status, error, is_approved, approved_at, script, payload, customization, provider_id, follow_up_id, asset_url, duration_seconds, generation, created_at, updated_at"

// CreateOutput inserts an output in PENDING at generation 1.
func (s *Store) CreateOutput(ctx context.Context, o *output.Output) error {
	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Status == "" {
		o.Status = output.StatusPending
	}
	if o.Generation == 0 {
		o.Generation = 1
	}
	o.CreatedAt, o.UpdatedAt = now, now

	payload, err := output.MarshalPayload(o.Payload)
	if err != nil {
		return err
	}
	customization, err := output.MarshalCustomization(o.Customization)
	if err != nil {
		return err
	}
	insert := s.builder().Insert("outputs").
		Columns("id", "submission_id", "organization_id", "kind", "status", "script", "payload", "customization",
			"generation", "created_at", "updated_at").
		Values(o.ID, database.NullableString(o.SubmissionID), o.OrganizationID, string(o.Kind), string(o.Status),
			o.Script, payload, customization, o.Generation, database.FormatTime(now), database.FormatTime(now))
	if _, err := s.q.Exec(ctx, insert); err != nil {
		return fmt.Errorf("insert output: %w", err)
	}
	return nil
}

// GetOutput fetches an output by id.
func (s *Store) GetOutput(ctx context.Context, id string) (*output.Output, error) {
	query := s.builder().Select(outputColumns).From("outputs").Where(sq.Eq{"id": id})
	o, err := scanOutput(s.q.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, notFound("output", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get output: %w", err)
	}
	return o, nil
}

// ListOutputsBySubmission returns a submission's outputs in kind creation order.
func (s *Store) ListOutputsBySubmission(ctx context.Context, submissionID string) ([]*output.Output, error) {
	query := s.builder().Select(outputColumns).From("outputs").
		Where(sq.Eq{"submission_id": submissionID}).
		OrderBy("created_at ASC", "id ASC")
	return s.queryOutputs(ctx, query)
}

// FindOutputByProviderID returns the output tracking an external provider job
// that is currently in status. Submission-linked outputs are preferred over
// standalone ones if a provider ever reused an id across both.
func (s *Store) FindOutputByProviderID(ctx context.Context, providerID string, status output.Status) (*output.Output, error) {
	return s.findOne(ctx, "provider_id", providerID, status)
}

// FindOutputByFollowUpID returns the output whose post-processing job has the
// given id and is currently in status.
func (s *Store) FindOutputByFollowUpID(ctx context.Context, followUpID string, status output.Status) (*output.Output, error) {
	return s.findOne(ctx, "follow_up_id", followUpID, status)
}

func (s *Store) findOne(ctx context.Context, column, value string, status output.Status) (*output.Output, error) {
	if value == "" {
		return nil, notFound("output", column+" (empty)")
	}
	query := s.builder().Select(outputColumns).From("outputs").
		Where(sq.Eq{column: value, "status": string(status)}).
		OrderBy("CASE WHEN submission_id IS NULL THEN 1 ELSE 0 END", "updated_at DESC").
		Limit(1)
	o, err := scanOutput(s.q.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, notFound("output", column+" "+value)
	}
	if err != nil {
		return nil, fmt.Errorf("find output by %s: %w", column, err)
	}
	return o, nil
}

// ListPendingOutputs returns PENDING outputs last touched before cutoff.
func (s *Store) ListPendingOutputs(ctx context.Context, cutoff time.Time, limit uint64) ([]*output.Output, error) {
	query := s.builder().Select(outputColumns).From("outputs").
		Where(sq.Eq{"status": string(output.StatusPending)}).
		Where(sq.Lt{"updated_at": database.FormatTime(cutoff)}).
		OrderBy("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return s.queryOutputs(ctx, query)
}

// OutputFilter narrows ListOutputs.
type OutputFilter struct {
	OrganizationID string
	Kinds          []output.Kind
	Statuses       []output.Status
	Standalone     bool
	Limit          uint64
}

// ListOutputs returns the most recently updated outputs matching filter.
func (s *Store) ListOutputs(ctx context.Context, filter OutputFilter) ([]*output.Output, error) {
	query := s.builder().Select(outputColumns).From("outputs").OrderBy("updated_at DESC")
	if filter.OrganizationID != "" {
		query = query.Where(sq.Eq{"organization_id": filter.OrganizationID})
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		query = query.Where(sq.Eq{"kind": kinds})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query = query.Where(sq.Eq{"status": statuses})
	}
	if filter.Standalone {
		query = query.Where(sq.Eq{"submission_id": nil})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return s.queryOutputs(ctx, query)
}

// OutputGuard is the compare half of a compare-and-swap on an output row.
type OutputGuard struct {
	Status output.Status
	// Generation, when non-zero, must equal the row's generation.
	Generation int
	// ProviderID, when set, must equal the row's provider id.
	ProviderID string
	// FollowUpUnset requires that no post-processing job has been recorded.
	FollowUpUnset bool
}

// OutputPatch is the swap half. Nil fields are left unchanged.
type OutputPatch struct {
	Error           *string
	Script          *string
	Payload         output.Payload
	SetPayload      bool
	Customization   *output.Customization
	ProviderID      *string
	FollowUpID      *string
	AssetURL        *string
	DurationSeconds *int
	BumpGeneration  bool
	ClearApproval   bool
	Approved        *bool
	ApprovedAt      *time.Time
}

// UpdateOutput applies patch and sets the status to `to` when the row still
// matches guard. It reports whether this call won the swap; a false result
// leaves the row untouched.
func (s *Store) UpdateOutput(ctx context.Context, id string, guard OutputGuard, to output.Status, patch OutputPatch) (bool, error) {
	now := time.Now().UTC()
	update := s.builder().Update("outputs").
		Set("status", string(to)).
		Set("updated_at", database.FormatTime(now))

	if patch.Error != nil {
		update = update.Set("error", *patch.Error)
	}
	if patch.Script != nil {
		update = update.Set("script", *patch.Script)
	}
	if patch.SetPayload {
		raw, err := output.MarshalPayload(patch.Payload)
		if err != nil {
			return false, err
		}
		update = update.Set("payload", raw)
	}
	if patch.Customization != nil {
		raw, err := output.MarshalCustomization(*patch.Customization)
		if err != nil {
			return false, err
		}
		update = update.Set("customization", raw)
	}
	if patch.ProviderID != nil {
		update = update.Set("provider_id", database.NullableString(*patch.ProviderID))
	}
	if patch.FollowUpID != nil {
		update = update.Set("follow_up_id", database.NullableString(*patch.FollowUpID))
	}
	if patch.AssetURL != nil {
		update = update.Set("asset_url", *patch.AssetURL)
	}
	if patch.DurationSeconds != nil {
		update = update.Set("duration_seconds", *patch.DurationSeconds)
	}
	if patch.BumpGeneration {
		update = update.Set("generation", sq.Expr("generation + 1"))
	}
	switch {
	case patch.ClearApproval:
		update = update.Set("is_approved", 0).Set("approved_at", nil)
	case patch.Approved != nil:
		update = update.Set("is_approved", database.BoolToInt(*patch.Approved)).
			Set("approved_at", database.NullableTime(patch.ApprovedAt))
	}

	update = update.Where(sq.Eq{"id": id, "status": string(guard.Status)})
	if guard.Generation > 0 {
		update = update.Where(sq.Eq{"generation": guard.Generation})
	}
	if guard.ProviderID != "" {
		update = update.Where(sq.Eq{"provider_id": guard.ProviderID})
	}
	if guard.FollowUpUnset {
		update = update.Where(sq.Eq{"follow_up_id": nil})
	}

	res, err := s.q.Exec(ctx, update)
	if err != nil {
		return false, fmt.Errorf("update output %s: %w", id, err)
	}
	return database.RowsAffected(res) == 1, nil
}

// StatusCounts returns the number of outputs per status.
func (s *Store) StatusCounts(ctx context.Context) (map[output.Status]int, error) {
	query := s.builder().Select("status", "COUNT(1)").From("outputs").GroupBy("status")
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count outputs: %w", err)
	}
	defer rows.Close()

	counts := make(map[output.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan output count: %w", err)
		}
		counts[output.Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) queryOutputs(ctx context.Context, query sq.SelectBuilder) ([]*output.Output, error) {
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	defer rows.Close()

	var out []*output.Output
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOutput(scanner database.RowScanner) (*output.Output, error) {
	var (
		o                      output.Output
		submissionID           sql.NullString
		kind, status           string
		approved               int
		approvedAt             sql.NullString
		payload, customization string
		providerID, followUpID sql.NullString
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(&o.ID, &submissionID, &o.OrganizationID, &kind, &status, &o.Error,
		&approved, &approvedAt, &o.Script, &payload, &customization, &providerID, &followUpID,
		&o.AssetURL, &o.DurationSeconds, &o.Generation, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	o.SubmissionID = submissionID.String
	o.Kind = output.Kind(kind)
	o.Status = output.Status(status)
	o.IsApproved = approved != 0
	o.ApprovedAt = database.ParseNullTime(approvedAt)
	o.ProviderID = providerID.String
	o.FollowUpID = followUpID.String
	o.CreatedAt, _ = database.ParseTime(createdRaw)
	o.UpdatedAt, _ = database.ParseTime(updatedRaw)

	var err error
	if o.Payload, err = output.UnmarshalPayload(payload); err != nil {
		return nil, err
	}
	if o.Customization, err = output.UnmarshalCustomization(customization); err != nil {
		return nil, err
	}
	return &o, nil
}
