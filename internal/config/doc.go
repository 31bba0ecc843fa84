// Package config loads, normalizes, and validates contentops configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, overlays secrets from a sibling .env file and
// the process environment, and validates every section before the daemon or
// CLI touches the database or an external backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
