package generation

import (
	"context"
	"fmt"
	"sort"

	"contentops/internal/article"
	"contentops/internal/language"
	"contentops/internal/output"
	"contentops/internal/services"
	"contentops/internal/services/llm"
)

// Request is everything an adapter needs to work on one output.
type Request struct {
	Output *output.Output
	// Article is nil for standalone videos.
	Article  *article.Article
	Language language.Language
	Title    string
	Script   string
	// ProviderRefs maps customization fields (e.g. "character_id") to the
	// backend reference of the catalog asset they name.
	ProviderRefs map[string]string
	// CallbackURL is where asynchronous backends report completion.
	CallbackURL string
}

func (r Request) brief() llm.Brief {
	b := llm.Brief{Language: r.Language.DisplayName(), Title: r.Title}
	if r.Article != nil {
		b.Title = r.Article.Title
		b.Body = r.Article.Body
		b.Category = r.Article.Category
	}
	if b.Language == "" {
		b.Language = language.Canonical.DisplayName()
	}
	return b
}

func (r Request) ref(field string) string {
	return r.ProviderRefs[field]
}

// ScriptResult is a reviewable script plus its structured form.
type ScriptResult struct {
	Script  string
	Payload output.Payload
}

// MediaResult is the outcome of Generate. Synchronous adapters fill AssetURL
// (when the kind has a media file) and Payload; asynchronous adapters set
// only ProviderID.
type MediaResult struct {
	AssetURL        string
	DurationSeconds int
	Payload         output.Payload
	ProviderID      string
}

// Pending reports whether completion arrives later via webhook or polling.
func (m MediaResult) Pending() bool {
	return m.ProviderID != "" && m.AssetURL == "" && m.Payload == nil
}

// Render states returned by CheckStatus.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// RenderStatus is the polled state of an asynchronous render.
type RenderStatus struct {
	State           string
	AssetURL        string
	DurationSeconds int
	Error           string
}

// Adapter generates one output kind.
type Adapter interface {
	Kind() output.Kind
	GenerateScript(ctx context.Context, req Request) (ScriptResult, error)
	Generate(ctx context.Context, req Request) (MediaResult, error)
	CheckStatus(ctx context.Context, providerID string) (RenderStatus, error)
}

// Registry maps kinds to adapters.
type Registry struct {
	adapters map[output.Kind]Adapter
}

// NewRegistry indexes adapters by kind. Later adapters replace earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[output.Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Kind()] = a
		}
	}
	return r
}

// Get returns the adapter for kind.
func (r *Registry) Get(kind output.Kind) (Adapter, error) {
	if r != nil {
		if a, ok := r.adapters[kind]; ok {
			return a, nil
		}
	}
	return nil, services.Wrap(services.ErrConfiguration, "generation", "lookup", fmt.Sprintf("no adapter for %s", kind), nil)
}

// Kinds lists registered kinds in a stable order.
func (r *Registry) Kinds() []output.Kind {
	kinds := make([]output.Kind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func synchronousOnly(kind output.Kind) error {
	return services.Wrap(services.ErrInvalidState, "generation", "check status", fmt.Sprintf("%s renders synchronously", kind), nil)
}

func notScriptFirst(kind output.Kind) error {
	return services.Wrap(services.ErrInvalidState, "generation", "generate script", fmt.Sprintf("%s has no review step", kind), nil)
}
