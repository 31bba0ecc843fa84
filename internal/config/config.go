package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Database selects the record store backend.
type Database struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// API contains the HTTP listener and the base URL external backends call back on.
type API struct {
	Bind          string `toml:"bind"`
	Token         string `toml:"token"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Webhooks holds the shared secrets used to verify provider callbacks.
type Webhooks struct {
	VideoSecret    string `toml:"video_secret"`
	CaptionsSecret string `toml:"captions_secret"`
}

// Workers contains job queue and worker pool timing, in seconds unless noted.
type Workers struct {
	Lanes                int `toml:"lanes"`
	PollInterval         int `toml:"poll_interval"`
	HeartbeatInterval    int `toml:"heartbeat_interval"`
	HeartbeatTimeout     int `toml:"heartbeat_timeout"`
	MaxAttempts          int `toml:"max_attempts"`
	RetryBaseDelay       int `toml:"retry_base_delay"`
	PendingSweepInterval int `toml:"pending_sweep_interval"`
	PendingGrace         int `toml:"pending_grace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic           string `toml:"ntfy_topic"`
	RequestTimeout      int    `toml:"request_timeout"`
	SubmissionCompleted bool   `toml:"submission_completed"`
	OutputFailed        bool   `toml:"output_failed"`
	ScriptReady         bool   `toml:"script_ready"`
}

// LLM contains the script writer connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Backend holds connection settings for one external generation backend.
type Backend struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config encapsulates all configuration values for contentops.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Database: sqlite (default) or postgres record store
//   - API: listener, operator token, public callback base URL
//   - Webhooks: provider signature secrets
//   - Workers: queue polling, leases, retries, pending sweep
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
//   - LLM, TTS, Avatar, Captions: generation backends
type Config struct {
	Paths         Paths         `toml:"paths"`
	Database      Database      `toml:"database"`
	API           API           `toml:"api"`
	Webhooks      Webhooks      `toml:"webhooks"`
	Workers       Workers       `toml:"workers"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	LLM           LLM           `toml:"llm"`
	TTS           Backend       `toml:"tts"`
	Avatar        Backend       `toml:"avatar"`
	Captions      Backend       `toml:"captions"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/contentops/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded, secrets overlaid from the environment, and defaults applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	dotenv, err := readDotEnv(filepath.Dir(resolvedPath))
	if err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv(envLookup(dotenv))

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("contentops.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// readDotEnv parses dir/.env without exporting it into the process environment.
func readDotEnv(dir string) (map[string]string, error) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat env file: %w", err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse env file %s: %w", path, err)
	}
	return values, nil
}

// envLookup prefers the process environment over the .env file.
func envLookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "contentopsd.lock")
}

// DatabaseDSN returns the driver-specific data source name.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
}

// PollIntervalDuration returns the worker queue poll interval.
func (w Workers) PollIntervalDuration() time.Duration {
	return seconds(w.PollInterval)
}

// HeartbeatIntervalDuration returns how often running jobs refresh their lease.
func (w Workers) HeartbeatIntervalDuration() time.Duration {
	return seconds(w.HeartbeatInterval)
}

// HeartbeatTimeoutDuration returns how stale a lease may get before it is reclaimed.
func (w Workers) HeartbeatTimeoutDuration() time.Duration {
	return seconds(w.HeartbeatTimeout)
}

func (w Workers) RetryBaseDelayDuration() time.Duration {
	return seconds(w.RetryBaseDelay)
}

func (w Workers) PendingSweepIntervalDuration() time.Duration {
	return seconds(w.PendingSweepInterval)
}

func (w Workers) PendingGraceDuration() time.Duration {
	return seconds(w.PendingGrace)
}

// Timeout returns the backend request timeout.
func (b Backend) Timeout() time.Duration {
	return seconds(b.TimeoutSeconds)
}

// Configured reports whether the backend has a base URL.
func (b Backend) Configured() bool {
	return strings.TrimSpace(b.BaseURL) != ""
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
