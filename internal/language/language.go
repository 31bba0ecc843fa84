package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"contentops/internal/services"
)

// Language is the stored submission language, an upper-case English word such
// as ENGLISH or HINDI.
type Language string

// Canonical is the reference language tags are inherited from.
const Canonical Language = "ENGLISH"

type entry struct {
	code2 string   // ISO 639-1 (2-letter)
	code3 string   // ISO 639-2 primary (3-letter)
	alt3  string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	name  Language // stored form
}

var languages = []entry{
	{"en", "eng", "", "ENGLISH"},
	{"hi", "hin", "", "HINDI"},
	{"es", "spa", "", "SPANISH"},
	{"fr", "fra", "fre", "FRENCH"},
	{"de", "deu", "ger", "GERMAN"},
	{"it", "ita", "", "ITALIAN"},
	{"pt", "por", "", "PORTUGUESE"},
	{"ja", "jpn", "", "JAPANESE"},
	{"ko", "kor", "", "KOREAN"},
	{"zh", "zho", "chi", "CHINESE"},
	{"ru", "rus", "", "RUSSIAN"},
	{"ar", "ara", "", "ARABIC"},
	{"bn", "ben", "", "BENGALI"},
	{"ta", "tam", "", "TAMIL"},
	{"te", "tel", "", "TELUGU"},
	{"mr", "mar", "", "MARATHI"},
	{"gu", "guj", "", "GUJARATI"},
	{"ur", "urd", "", "URDU"},
	{"nl", "nld", "dut", "DUTCH"},
	{"pl", "pol", "", "POLISH"},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byName  map[Language]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byName = make(map[Language]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byName[e.name] = e
	}
}

func lookup(value string) *entry {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if e, ok := byName[Language(strings.ToUpper(trimmed))]; ok {
		return e
	}
	lower := strings.ToLower(trimmed)
	if e, ok := byCode2[lower]; ok {
		return e
	}
	if e, ok := byCode3[lower]; ok {
		return e
	}
	// BCP 47 tags such as "en-US" or "hi-IN".
	if tag, err := xlanguage.Parse(trimmed); err == nil {
		base, _ := tag.Base()
		if e, ok := byCode2[base.String()]; ok {
			return e
		}
	}
	return nil
}

// Parse normalizes a language word, ISO code, or BCP 47 tag to its stored form.
func Parse(value string) (Language, error) {
	if e := lookup(value); e != nil {
		return e.name, nil
	}
	return "", services.Wrap(services.ErrValidation, "language", "parse", fmt.Sprintf("unsupported language %q", value), nil)
}

// NormalizeList parses, deduplicates, and order-preserves requested languages.
// An empty list yields the canonical language.
func NormalizeList(values []string) ([]Language, error) {
	out := make([]Language, 0, len(values))
	seen := make(map[Language]struct{}, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		lang, err := Parse(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	if len(out) == 0 {
		out = append(out, Canonical)
	}
	return out, nil
}

// IsCanonical reports whether l is the canonical language.
func (l Language) IsCanonical() bool {
	return l == Canonical
}

// ISO2 returns the ISO 639-1 code, or "" for unknown languages.
func (l Language) ISO2() string {
	if e, ok := byName[l]; ok {
		return e.code2
	}
	return ""
}

// Tag returns the BCP 47 tag backend clients send to TTS and script writers.
func (l Language) Tag() xlanguage.Tag {
	if code := l.ISO2(); code != "" {
		return xlanguage.Make(code)
	}
	return xlanguage.Und
}

// DisplayName returns the English name, e.g. "Hindi".
func (l Language) DisplayName() string {
	tag := l.Tag()
	if tag == xlanguage.Und {
		return strings.ToUpper(string(l))
	}
	return display.English.Languages().Name(tag)
}

// NativeName returns the language's name in itself, e.g. "हिन्दी".
func (l Language) NativeName() string {
	tag := l.Tag()
	if tag == xlanguage.Und {
		return l.DisplayName()
	}
	return display.Self.Name(tag)
}

func (l Language) String() string {
	return string(l)
}
