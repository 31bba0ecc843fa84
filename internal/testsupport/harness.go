package testsupport

import (
	"context"
	"testing"

	"contentops/internal/aggregate"
	"contentops/internal/config"
	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/orchestrator"
	"contentops/internal/output"
	"contentops/internal/store"
	"contentops/internal/tags"
)

// Harness is an orchestrator over a temp database with a recording queue
// and notifier.
type Harness struct {
	Config       *config.Config
	Store        *store.Store
	Queue        *RecordingQueue
	Notifier     *notifications.Recorder
	Tags         *tags.Engine
	Orchestrator *orchestrator.Orchestrator
}

// NewHarness builds a Harness.
func NewHarness(t testing.TB, opts ...ConfigOption) *Harness {
	t.Helper()
	cfg := NewConfig(t, opts...)
	st := MustOpenStore(t, cfg)
	q := &RecordingQueue{}
	notifier := &notifications.Recorder{}
	logger := logging.NewNop()
	engine := tags.NewEngine(st, q, logger)
	recomputer := aggregate.NewRecomputer(st, engine, notifier, logger)
	return &Harness{
		Config:       cfg,
		Store:        st,
		Queue:        q,
		Notifier:     notifier,
		Tags:         engine,
		Orchestrator: orchestrator.New(st, q, recomputer, notifier, logger),
	}
}

// Output reloads an output.
func (h *Harness) Output(t testing.TB, id string) *output.Output {
	t.Helper()
	o, err := h.Store.GetOutput(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOutput: %v", err)
	}
	return o
}

// MustAsset adds a catalog asset to an organization.
func MustAsset(t testing.TB, st *store.Store, organizationID string, assetType output.AssetType, name string) *store.Asset {
	t.Helper()
	a := &store.Asset{OrganizationID: organizationID, Type: assetType, Name: name, ProviderRef: "ext-" + name}
	if err := st.UpsertAsset(context.Background(), a); err != nil {
		t.Fatalf("UpsertAsset: %v", err)
	}
	return a
}
