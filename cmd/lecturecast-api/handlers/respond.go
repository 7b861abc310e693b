// Package handlers provides HTTP handlers for the lecturecast API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
)

// ErrorDTO is the body of every error response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// StatusFor maps an error kind to an HTTP status. Client-input kinds are 4xx.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrorTypeUnsupportedFormat, domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeSourceNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, ErrorDTO{Error: message, Kind: kind, Message: message})
}

// writeDomainError reports err with its kind. Server-side failures are logged in full
// and answered with a generic message.
func writeDomainError(w http.ResponseWriter, logger *observability.Logger, err error) {
	status := StatusFor(err)
	kind := string(domain.KindOf(err))

	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		logger.Error().Err(err).Str("error_kind", kind).Msg("request failed")
		writeError(w, status, "lecture generation failed", kind)
		return
	}

	logger.Warn().Err(err).Str("error_kind", kind).Int("status", status).Msg("request rejected")
	writeError(w, status, err.Error(), kind)
}
