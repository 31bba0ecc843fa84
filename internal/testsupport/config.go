package testsupport

import (
	"path/filepath"
	"testing"

	"contentops/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.API.PublicBaseURL = "https://ops.test"
	cfgVal.Webhooks.VideoSecret = "video-secret"
	cfgVal.Webhooks.CaptionsSecret = "captions-secret"
	cfgVal.Workers.PollInterval = 1
	cfgVal.Workers.RetryBaseDelay = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the operator bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithBackends points every generation backend at baseURL.
func WithBackends(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL + "/llm"
		b.cfg.LLM.APIKey = "llm-key"
		b.cfg.TTS.BaseURL = baseURL + "/tts"
		b.cfg.Avatar.BaseURL = baseURL + "/avatar"
		b.cfg.Captions.BaseURL = baseURL + "/captions"
	}
}

// WithNtfyTopic enables notifications against topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
