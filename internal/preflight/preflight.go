package preflight

import (
	"context"

	"contentops/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes every applicable check. db may be nil when the database
// could not be opened; the caller reports that failure itself.
func RunAll(ctx context.Context, cfg *config.Config, db Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if db != nil {
		results = append(results, CheckDatabase(ctx, db))
	}
	results = append(results, CheckWebhookSecrets(cfg)...)

	if cfg.LLM.APIKey != "" || cfg.LLM.BaseURL != "" {
		results = append(results, CheckLLM(ctx, "LLM", cfg))
	}
	for _, b := range []struct {
		name string
		cfg  config.Backend
	}{
		{"TTS backend", cfg.TTS},
		{"Avatar backend", cfg.Avatar},
		{"Captions backend", cfg.Captions},
	} {
		if b.cfg.Configured() {
			results = append(results, CheckBackend(ctx, b.name, b.cfg.BaseURL))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
