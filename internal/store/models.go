package store

import (
	"time"

	"contentops/internal/output"
)

// Tag is an organization-scoped label.
type Tag struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	Category       string
	CreatedAt      time.Time
}

// OutputTag is a tag attached to an output. Inherited tags record the
// sibling output they were copied from.
type OutputTag struct {
	OutputID       string
	Tag            Tag
	IsInherited    bool
	SourceOutputID string
	CreatedAt      time.Time
}

// Asset is a customization catalog entry.
type Asset struct {
	ID             string
	OrganizationID string
	Type           output.AssetType
	Name           string
	ProviderRef    string
	CreatedAt      time.Time
}
