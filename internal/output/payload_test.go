package output_test

import (
	"errors"
	"strings"
	"testing"

	"contentops/internal/output"
	"contentops/internal/services"
)

func TestPayloadCarriesKindDiscriminant(t *testing.T) {
	in := output.InteractivePodcastPayload{
		Segments: []output.Segment{{Speaker: "host", Text: "Welcome"}},
		Prompts:  []output.InteractivePrompt{{AfterSegment: 0, Question: "What did you expect?"}},
	}
	raw, err := output.MarshalPayload(in)
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}
	if !strings.Contains(raw, `"kind":"interactive_podcast"`) {
		t.Fatalf("missing discriminant in %s", raw)
	}
	decoded, err := output.UnmarshalPayload(raw)
	if err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	got, ok := decoded.(output.InteractivePodcastPayload)
	if !ok {
		t.Fatalf("decoded %T", decoded)
	}
	if len(got.Prompts) != 1 || got.Segments[0].Text != "Welcome" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestPayloadEmptyAndUnknown(t *testing.T) {
	if raw, err := output.MarshalPayload(nil); err != nil || raw != "" {
		t.Fatalf("nil payload: %q %v", raw, err)
	}
	if p, err := output.UnmarshalPayload(""); err != nil || p != nil {
		t.Fatalf("empty payload: %v %v", p, err)
	}
	if _, err := output.UnmarshalPayload(`{"kind":"hologram","data":{}}`); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCustomizationValidation(t *testing.T) {
	ok := output.Customization{CharacterID: "char-1", AspectRatio: "9:16", CaptionsEnabled: true}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := output.Customization{AspectRatio: "4:3"}
	err := bad.Validate()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "aspect_ratio") {
		t.Fatalf("expected json field name in %q", err)
	}
}

func TestCustomizationAssetRefs(t *testing.T) {
	c := output.Customization{CharacterID: "c", IntroBumperID: "b1", OutroBumperID: "b2"}
	refs := c.AssetRefs()
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %+v", refs)
	}
	if refs[0].Type != output.AssetCharacter || refs[1].Type != output.AssetBumper || refs[2].Field != "outro_bumper_id" {
		t.Fatalf("unexpected refs %+v", refs)
	}

	raw, err := output.MarshalCustomization(c)
	if err != nil {
		t.Fatalf("MarshalCustomization: %v", err)
	}
	back, err := output.UnmarshalCustomization(raw)
	if err != nil || back != c {
		t.Fatalf("round trip: %+v %v", back, err)
	}
	if raw, _ := output.MarshalCustomization(output.Customization{}); raw != "" {
		t.Fatalf("zero customization should encode empty, got %q", raw)
	}
}
