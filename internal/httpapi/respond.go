package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"contentops/internal/logging"
	"contentops/internal/services"
)

const maxBodyBytes = 4 << 20

// handlerFunc is an http handler that reports failure by returning an error.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status := services.HTTPStatus(err)
		logger := logging.WithContext(r.Context(), s.logger)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logger, "request failed", "api_request_failed",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Error(err))
		} else {
			logger.Debug("request rejected",
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Error(err))
		}
		writeError(w, s.logger, status, services.Details(err))
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return services.Wrap(services.ErrValidation, "api", "decode body", fmt.Sprintf("invalid request body: %v", err), nil)
	}
	return nil
}
