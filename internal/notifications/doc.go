// Package notifications delivers content-operations events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Each
// event type can be switched off individually in the [notifications] section.
//
// Callers depend only on the Service interface; delivery failures are returned
// to the caller, which logs them and moves on.
package notifications
