package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"contentops/internal/services"
)

// AssetType names an organization-scoped customization catalog entry.
type AssetType string

const (
	AssetCharacter       AssetType = "character"
	AssetVoice           AssetType = "voice"
	AssetTemplate        AssetType = "template"
	AssetCaptionStyle    AssetType = "caption_style"
	AssetBackgroundMusic AssetType = "background_music"
	AssetBumper          AssetType = "bumper"
)

// ParseAssetType matches case-insensitively.
func ParseAssetType(value string) (AssetType, bool) {
	normalized := AssetType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case AssetCharacter, AssetVoice, AssetTemplate, AssetCaptionStyle, AssetBackgroundMusic, AssetBumper:
		return normalized, true
	}
	return "", false
}

// Customization holds rendering choices made during script review.
type Customization struct {
	CharacterID       string `json:"character_id,omitempty" validate:"omitempty,max=64"`
	VoiceID           string `json:"voice_id,omitempty" validate:"omitempty,max=64"`
	TemplateID        string `json:"template_id,omitempty" validate:"omitempty,max=64"`
	CaptionStyleID    string `json:"caption_style_id,omitempty" validate:"omitempty,max=64"`
	BackgroundMusicID string `json:"background_music_id,omitempty" validate:"omitempty,max=64"`
	IntroBumperID     string `json:"intro_bumper_id,omitempty" validate:"omitempty,max=64"`
	OutroBumperID     string `json:"outro_bumper_id,omitempty" validate:"omitempty,max=64"`
	AspectRatio       string `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=16:9 9:16 1:1"`
	CaptionsEnabled   bool   `json:"captions_enabled,omitempty"`
	BrollEnabled      bool   `json:"broll_enabled,omitempty"`
}

// AssetRef is one catalog reference made by a Customization.
type AssetRef struct {
	Type  AssetType
	ID    string
	Field string
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field formats. Ownership of referenced assets is checked by
// the orchestrator against the catalog.
func (c Customization) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return services.Wrap(services.ErrValidation, "customization", "validate", strings.Join(parts, "; "), nil)
	}
	return services.Wrap(services.ErrValidation, "customization", "validate", "", err)
}

// AssetRefs lists every non-empty catalog reference.
func (c Customization) AssetRefs() []AssetRef {
	candidates := []AssetRef{
		{AssetCharacter, c.CharacterID, "character_id"},
		{AssetVoice, c.VoiceID, "voice_id"},
		{AssetTemplate, c.TemplateID, "template_id"},
		{AssetCaptionStyle, c.CaptionStyleID, "caption_style_id"},
		{AssetBackgroundMusic, c.BackgroundMusicID, "background_music_id"},
		{AssetBumper, c.IntroBumperID, "intro_bumper_id"},
		{AssetBumper, c.OutroBumperID, "outro_bumper_id"},
	}
	refs := candidates[:0]
	for _, ref := range candidates {
		if strings.TrimSpace(ref.ID) != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// NeedsPostProcessing reports whether a rendered video goes to the captions backend.
func (c Customization) NeedsPostProcessing() bool {
	return c.CaptionsEnabled || c.BrollEnabled
}

// IsZero reports whether nothing was chosen.
func (c Customization) IsZero() bool {
	return c == Customization{}
}

// MarshalCustomization encodes c for storage; the zero value encodes as "".
func MarshalCustomization(c Customization) (string, error) {
	if c.IsZero() {
		return "", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode customization: %w", err)
	}
	return string(raw), nil
}

// UnmarshalCustomization decodes a stored customization.
func UnmarshalCustomization(raw string) (Customization, error) {
	var c Customization
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, fmt.Errorf("decode customization: %w", err)
	}
	return c, nil
}
