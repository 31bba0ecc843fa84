package config

import (
	"fmt"
	"strings"
)

// applyEnv overlays secrets and the DSN from the environment. Values already
// present in the config file win.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overlay := func(target *string, key string) {
		if strings.TrimSpace(*target) != "" {
			return
		}
		if value, ok := lookup(key); ok {
			*target = strings.TrimSpace(value)
		}
	}
	overlay(&c.API.Token, "CONTENTOPS_API_TOKEN")
	overlay(&c.Webhooks.VideoSecret, "CONTENTOPS_VIDEO_WEBHOOK_SECRET")
	overlay(&c.Webhooks.CaptionsSecret, "CONTENTOPS_CAPTIONS_WEBHOOK_SECRET")
	overlay(&c.LLM.APIKey, "CONTENTOPS_LLM_API_KEY")
	overlay(&c.LLM.APIKey, "OPENROUTER_API_KEY")
	overlay(&c.TTS.APIKey, "CONTENTOPS_TTS_API_KEY")
	overlay(&c.Avatar.APIKey, "CONTENTOPS_AVATAR_API_KEY")
	overlay(&c.Captions.APIKey, "CONTENTOPS_CAPTIONS_API_KEY")
	overlay(&c.Database.DSN, "CONTENTOPS_DATABASE_DSN")
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeAPI()
	c.normalizeWorkers()
	c.normalizeLLM()
	c.normalizeBackends()
	c.normalizeLogging()
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = defaultDatabaseDriver
	case "postgresql", "pg":
		c.Database.Driver = "postgres"
	case "sqlite3":
		c.Database.Driver = "sqlite"
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PublicBaseURL), "/")
	if c.API.PublicBaseURL == "" {
		c.API.PublicBaseURL = "http://" + c.API.Bind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
}

func (c *Config) normalizeWorkers() {
	positive := func(target *int, fallback int) {
		if *target <= 0 {
			*target = fallback
		}
	}
	positive(&c.Workers.Lanes, defaultWorkerLanes)
	positive(&c.Workers.PollInterval, defaultPollInterval)
	positive(&c.Workers.HeartbeatInterval, defaultHeartbeatInterval)
	positive(&c.Workers.HeartbeatTimeout, defaultHeartbeatTimeout)
	positive(&c.Workers.MaxAttempts, defaultMaxAttempts)
	positive(&c.Workers.RetryBaseDelay, defaultRetryBaseDelay)
	positive(&c.Workers.PendingSweepInterval, defaultPendingSweepInterval)
	positive(&c.Workers.PendingGrace, defaultPendingGrace)
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeBackends() {
	for _, backend := range []*Backend{&c.TTS, &c.Avatar, &c.Captions} {
		backend.BaseURL = strings.TrimRight(strings.TrimSpace(backend.BaseURL), "/")
		backend.APIKey = strings.TrimSpace(backend.APIKey)
		if backend.TimeoutSeconds <= 0 {
			backend.TimeoutSeconds = defaultBackendTimeoutSeconds
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
