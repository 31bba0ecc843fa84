package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"contentops/internal/database"
	"contentops/internal/output"
	"contentops/internal/services"
)

const assetColumns = "id, organization_id, type, name, provider_ref, created_at"

// UpsertAsset creates a catalog entry or updates the provider reference of the
// existing (organization, type, name) entry. The stored id is written back.
func (s *Store) UpsertAsset(ctx context.Context, a *Asset) error {
	if a.OrganizationID == "" || a.Name == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert asset", "organization and name are required", nil)
	}
	if _, ok := output.ParseAssetType(string(a.Type)); !ok {
		return services.Wrap(services.ErrValidation, "store", "upsert asset", fmt.Sprintf("unknown asset type %q", a.Type), nil)
	}
	if a.ID == "" {
		a.ID = newID()
	}
	insert := s.builder().Insert("assets").
		Columns("id", "organization_id", "type", "name", "provider_ref", "created_at").
		Values(a.ID, a.OrganizationID, string(a.Type), a.Name, a.ProviderRef, database.FormatTime(time.Now())).
		Suffix("ON CONFLICT (organization_id, type, name) DO UPDATE SET provider_ref = excluded.provider_ref")
	if _, err := s.q.Exec(ctx, insert); err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	query := s.builder().Select(assetColumns).From("assets").
		Where(sq.Eq{"organization_id": a.OrganizationID, "type": string(a.Type), "name": a.Name})
	stored, err := scanAsset(s.q.QueryRow(ctx, query))
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}
	*a = *stored
	return nil
}

// GetOrgAsset fetches a catalog entry, returning ErrNotFound unless it exists,
// belongs to organizationID, and has the expected type.
func (s *Store) GetOrgAsset(ctx context.Context, organizationID string, assetType output.AssetType, id string) (*Asset, error) {
	query := s.builder().Select(assetColumns).From("assets").
		Where(sq.Eq{"id": id, "organization_id": organizationID, "type": string(assetType)})
	a, err := scanAsset(s.q.QueryRow(ctx, query))
	if database.IsNoRows(err) {
		return nil, notFound(string(assetType), id)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// ListAssets returns an organization's catalog ordered by type and name.
func (s *Store) ListAssets(ctx context.Context, organizationID string) ([]*Asset, error) {
	query := s.builder().Select(assetColumns).From("assets").
		Where(sq.Eq{"organization_id": organizationID}).
		OrderBy("type ASC", "name ASC")
	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []*Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAsset(scanner database.RowScanner) (*Asset, error) {
	var (
		a          Asset
		assetType  string
		createdRaw string
	)
	if err := scanner.Scan(&a.ID, &a.OrganizationID, &assetType, &a.Name, &a.ProviderRef, &createdRaw); err != nil {
		return nil, err
	}
	a.Type = output.AssetType(assetType)
	a.CreatedAt, _ = database.ParseTime(createdRaw)
	return &a, nil
}
