package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required when database.driver is postgres (or set CONTENTOPS_DATABASE_DSN)")
		}
		return nil
	default:
		return fmt.Errorf("database.driver: unsupported value %q (want sqlite or postgres)", c.Database.Driver)
	}
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.PublicBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.public_base_url must be an absolute URL, got %q", c.API.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must be greater than workers.heartbeat_interval")
	}
	if c.Workers.Lanes > 64 {
		return errors.New("workers.lanes must be 64 or fewer")
	}
	return nil
}

func (c *Config) validateBackends() error {
	backends := map[string]Backend{"tts": c.TTS, "avatar": c.Avatar, "captions": c.Captions}
	for name, backend := range backends {
		if backend.BaseURL == "" {
			continue
		}
		if _, err := url.ParseRequestURI(backend.BaseURL); err != nil {
			return fmt.Errorf("%s.base_url: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", strings.TrimSpace(c.Logging.Level))
	}
}
