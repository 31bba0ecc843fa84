package catalog_test

import (
	"context"
	"strings"
	"testing"

	"contentops/internal/catalog"
	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/testsupport"
)

const sample = `
organization_id: org-1
assets:
  - type: character
    name: anchor-priya
    provider_ref: av_7f3a
  - type: Caption_Style
    name: bold-yellow
    provider_ref: cs_12
  - type: voice
    name: narrator
    provider_ref: el_99
    organization_id: org-2
`

func TestImportUpsertsAssets(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	f, err := catalog.Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assets, err := catalog.Import(ctx, st, f)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(assets) != 3 || assets[1].Type != output.AssetCaptionStyle || assets[2].OrganizationID != "org-2" {
		t.Fatalf("unexpected import: %+v", assets)
	}

	updated := strings.Replace(sample, "av_7f3a", "av_8000", 1)
	f, err = catalog.Parse(strings.NewReader(updated))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	again, err := catalog.Import(ctx, st, f)
	if err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	if again[0].ID != assets[0].ID || again[0].ProviderRef != "av_8000" {
		t.Fatalf("expected in-place update, got %+v", again[0])
	}
	org1, err := st.ListAssets(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(org1) != 2 {
		t.Fatalf("expected 2 org-1 assets, got %d", len(org1))
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty"},
		{"unknown key", "organisation: org-1\n", "organisation"},
		{"unknown type", "organization_id: o\nassets:\n  - {type: hologram, name: x, provider_ref: y}\n", "hologram"},
		{"no organization", "assets:\n  - {type: voice, name: x, provider_ref: y}\n", "organization_id"},
		{"no provider ref", "organization_id: o\nassets:\n  - {type: voice, name: x}\n", "provider_ref"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if services.HTTPStatus(err) != 400 {
				t.Fatalf("expected a validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
