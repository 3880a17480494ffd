package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"quote-assistant-backend/internal/middleware"
	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/pkg/logging"
)

const rulesValidationMessage = "Content is required and must be a string"

type rulesStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

type RulesHandler struct {
	rules  rulesStore
	logger *logging.Logger
}

func NewRulesHandler(rules rulesStore, logger *logging.Logger) *RulesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RulesHandler{rules: rules, logger: logger}
}

// Get returns the rules file verbatim.
func (h *RulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	content, err := h.rules.Read(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to read AI rules", err)
		return
	}
	writeJSON(w, http.StatusOK, models.RulesResponse{Content: content})
}

// Update replaces the rules. The new text applies to the next send request.
func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRulesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var content string
	if len(req.Content) == 0 || string(req.Content) == "null" {
		writeJSON(w, http.StatusBadRequest, errorResp(rulesValidationMessage, "", r))
		return
	}
	if err := json.Unmarshal(req.Content, &content); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp(rulesValidationMessage, "", r))
		return
	}

	if err := h.rules.Write(r.Context(), content); err != nil {
		handleServiceError(w, r, h.logger, "Failed to update AI rules", err)
		return
	}

	if admin := middleware.GetAdminSubject(r.Context()); admin != "" {
		h.logger.InfoContext(r.Context(), "rules updated by admin", "admin", admin)
	}

	writeJSON(w, http.StatusOK, models.UpdateRulesResponse{
		Success: true,
		Message: "AI rules updated. New conversations use them right away; no restart needed.",
	})
}
