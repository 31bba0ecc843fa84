// Package llm provides an OpenRouter-compatible chat client that writes the
// scripts and structured content behind every output kind.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON response.
// Client.WriteNarration, WritePodcast, WriteVideoScript, WriteQuiz,
// WriteInteractivePodcast: kind-specific writers returning typed results.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Transport and retry come from the backend package: HTTP 408/429/5xx and
// network timeouts are retried with exponential backoff, as are responses
// that arrive without any content. Context cancellation aborts immediately.
//
// Prompts are deliberately plain; wording is not part of the service contract.
package llm
