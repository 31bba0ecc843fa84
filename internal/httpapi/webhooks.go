package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"contentops/internal/logging"
	"contentops/internal/services"
	"contentops/internal/webhook"
)

var webhookAck = map[string]bool{"success": true}

func (s *Server) handleVideoWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r, s.videoSecret)
	if !ok {
		return
	}
	var event webhook.VideoEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.malformed(w, r, err)
		return
	}
	s.ack(w, r, s.reconciler.HandleVideo(r.Context(), event))
}

func (s *Server) handleCaptionsWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r, s.captionsSecret)
	if !ok {
		return
	}
	var event webhook.CaptionsEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.malformed(w, r, err)
		return
	}
	s.ack(w, r, s.reconciler.HandleCaptions(r.Context(), event))
}

// verifiedBody reads the raw body and checks its signature before anything
// is parsed.
func (s *Server) verifiedBody(w http.ResponseWriter, r *http.Request, secret string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	if !webhook.VerifySignature(secret, body, signatureOf(r)) {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "webhook signature rejected", "webhook_unauthorized",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorHint, "check the webhook secret shared with the backend"))
		writeError(w, s.logger, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}
	return body, true
}

// malformed acknowledges a signed body that is not valid JSON; a retry would
// carry the same bytes.
func (s *Server) malformed(w http.ResponseWriter, r *http.Request, err error) {
	logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "webhook body not decodable", "webhook_malformed",
		logging.String("path", r.URL.Path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "callback dropped"))
	writeJSON(w, s.logger, http.StatusOK, webhookAck)
}

func (s *Server) ack(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "webhook not recorded", "webhook_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the backend will retry the callback"))
		writeError(w, s.logger, http.StatusInternalServerError, services.Details(err))
		return
	}
	writeJSON(w, s.logger, http.StatusOK, webhookAck)
}

func signatureOf(r *http.Request) string {
	if sig := r.Header.Get(webhook.SignatureHeader); sig != "" {
		return sig
	}
	return r.Header.Get(webhook.LegacySignatureHeader)
}
