// Package catalog imports organization customization assets (avatars,
// voices, templates, caption styles, music and bumpers) from a YAML file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/store"
)

// File is the catalog document:
//
//	organization_id: org-1
//	assets:
//	  - type: character
//	    name: anchor-priya
//	    provider_ref: av_7f3a
type File struct {
	OrganizationID string  `yaml:"organization_id"`
	Assets         []Entry `yaml:"assets"`
}

// Entry is one asset. OrganizationID overrides the file default.
type Entry struct {
	OrganizationID string `yaml:"organization_id"`
	Type           string `yaml:"type"`
	Name           string `yaml:"name"`
	ProviderRef    string `yaml:"provider_ref"`
}

// Parse decodes and validates a catalog. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var f File
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, "catalog", "parse", "catalog is empty", nil)
		}
		return nil, services.Wrap(services.ErrValidation, "catalog", "parse", "", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFile reads a catalog from path.
func ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

func (f *File) validate() error {
	var problems []string
	for i := range f.Assets {
		e := &f.Assets[i]
		if strings.TrimSpace(e.OrganizationID) == "" {
			e.OrganizationID = f.OrganizationID
		}
		e.OrganizationID = strings.TrimSpace(e.OrganizationID)
		e.Name = strings.TrimSpace(e.Name)
		e.ProviderRef = strings.TrimSpace(e.ProviderRef)
		switch {
		case e.OrganizationID == "":
			problems = append(problems, fmt.Sprintf("asset %d: organization_id is required", i+1))
		case e.Name == "":
			problems = append(problems, fmt.Sprintf("asset %d: name is required", i+1))
		case e.ProviderRef == "":
			problems = append(problems, fmt.Sprintf("asset %d (%s): provider_ref is required", i+1, e.Name))
		}
		if t, ok := output.ParseAssetType(e.Type); ok {
			e.Type = string(t)
		} else {
			problems = append(problems, fmt.Sprintf("asset %d (%s): unknown type %q", i+1, e.Name, e.Type))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "catalog", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Import upserts every asset in one transaction. Assets are keyed by
// organization, type and name; importing again updates provider refs.
func Import(ctx context.Context, st *store.Store, f *File) ([]*store.Asset, error) {
	imported := make([]*store.Asset, 0, len(f.Assets))
	err := st.WithTx(ctx, func(tx *store.Store) error {
		imported = imported[:0]
		for _, e := range f.Assets {
			a := &store.Asset{
				OrganizationID: e.OrganizationID,
				Type:           output.AssetType(e.Type),
				Name:           e.Name,
				ProviderRef:    e.ProviderRef,
			}
			if err := tx.UpsertAsset(ctx, a); err != nil {
				return err
			}
			imported = append(imported, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}
