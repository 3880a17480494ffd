package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"quote-assistant-backend/internal/middleware"
	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/internal/services"
	"quote-assistant-backend/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(label, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error:     label,
		Message:   message,
		RequestID: middleware.GetRequestID(r.Context()),
	}
}

// decodeBody decodes a JSON body, answering 413 or 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("Request body too large", "", r))
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", "", r))
	return false
}

// handleServiceError maps service errors onto HTTP responses. Validation
// failures are the caller's fault; everything else is reported as a 500
// carrying label plus the underlying message.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, label string, err error) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorResp(vErr.Message, "", r))
		return
	}

	kind := "unexpected"
	var (
		cfgErr *services.ConfigError
		pErr   *services.ProviderError
		ioErr  *services.IOError
	)
	switch {
	case errors.As(err, &cfgErr):
		kind = "config"
	case errors.As(err, &pErr):
		kind = "provider"
	case errors.As(err, &ioErr):
		kind = "io"
	}
	logger.ErrorContext(r.Context(), label,
		"error", err,
		"kind", kind,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResp(label, err.Error(), r))
}
