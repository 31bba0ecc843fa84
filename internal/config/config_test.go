package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"contentops/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "contentops")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected driver: %q", cfg.Database.Driver)
	}
	if got := cfg.DatabaseDSN(); got != filepath.Join(wantData, "contentops.db") {
		t.Fatalf("unexpected sqlite dsn: %q", got)
	}
	if cfg.API.Bind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Workers.Lanes != config.Default().Workers.Lanes {
		t.Fatalf("unexpected lanes: %d", cfg.Workers.Lanes)
	}
	if cfg.Logging.Format != "auto" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "~/ops"

[database]
driver = "PostgreSQL"
dsn = "postgres://ops@localhost/ops?sslmode=disable"

[api]
bind = "0.0.0.0:9000"
public_base_url = "https://ops.example.com/"

[workers]
lanes = 8
max_attempts = 0

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "ops") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected driver alias normalized, got %q", cfg.Database.Driver)
	}
	if cfg.API.PublicBaseURL != "https://ops.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.PublicBaseURL)
	}
	if cfg.Workers.Lanes != 8 {
		t.Fatalf("unexpected lanes: %d", cfg.Workers.Lanes)
	}
	if cfg.Workers.MaxAttempts != config.Default().Workers.MaxAttempts {
		t.Fatalf("expected max_attempts default, got %d", cfg.Workers.MaxAttempts)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workers]\nlane_count = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadReadsSecretsFromEnvAndDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nbind = \"127.0.0.1:1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	dotenv := "CONTENTOPS_VIDEO_WEBHOOK_SECRET=from-dotenv\nCONTENTOPS_API_TOKEN=dotenv-token\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("CONTENTOPS_API_TOKEN", "env-token")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("expected process env to win, got %q", cfg.API.Token)
	}
	if cfg.Webhooks.VideoSecret != "from-dotenv" {
		t.Fatalf("expected dotenv secret, got %q", cfg.Webhooks.VideoSecret)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "postgres without dsn",
			mutate: func(c *config.Config) { c.Database.Driver = "postgres" },
			want:   "database.dsn",
		},
		{
			name:   "unknown driver",
			mutate: func(c *config.Config) { c.Database.Driver = "mysql" },
			want:   "database.driver",
		},
		{
			name: "heartbeat timeout too small",
			mutate: func(c *config.Config) {
				c.Workers.HeartbeatInterval = 30
				c.Workers.HeartbeatTimeout = 30
			},
			want: "heartbeat_timeout",
		},
		{
			name:   "relative public url",
			mutate: func(c *config.Config) { c.API.PublicBaseURL = "/callbacks" },
			want:   "public_base_url",
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample failed to load: %v", err)
	}
}
