// Package httpapi serves the operator JSON API and the provider webhooks.
//
// Routes under /api require the configured bearer token and call straight
// into the orchestrator; errors are rendered as {"error": message} with the
// status from services.HTTPStatus. Routes under /webhooks authenticate by
// HMAC signature instead and always answer 200 once the signature checks out,
// unless the fallback job could not be queued.
package httpapi
