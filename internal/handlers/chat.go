package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"quote-assistant-backend/internal/models"
	"quote-assistant-backend/internal/services"
	"quote-assistant-backend/pkg/logging"
)

type generator interface {
	Generate(ctx context.Context, payload services.Payload) (string, error)
}

type currentRules interface {
	Current() string
}

type ChatHandler struct {
	generator generator
	rules     currentRules
	opts      services.BuildOptions
	logger    *logging.Logger
}

func NewChatHandler(gen generator, rules currentRules, opts services.BuildOptions, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{
		generator: gen,
		rules:     rules,
		opts:      opts,
		logger:    logger,
	}
}

// sendBody keeps history raw: a malformed history is treated as empty
// rather than failing the request.
type sendBody struct {
	Text    string          `json:"text"`
	Image   string          `json:"image"`
	History json.RawMessage `json:"history"`
}

// Send relays one chat turn to the model and returns its reply.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if !decodeBody(w, r, &body) {
		return
	}

	req := models.SendRequest{
		Text:    body.Text,
		Image:   body.Image,
		History: parseHistory(body.History),
	}

	payload, err := services.BuildPayload(req, h.rules.Current(), h.opts)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to process request", err)
		return
	}

	reply, err := h.generator.Generate(r.Context(), payload)
	if err != nil {
		handleServiceError(w, r, h.logger, "Failed to process request", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendResponse{Response: reply})
}

// parseHistory decodes what it can: a non-array yields nil. Entries that are
// not objects of strings become empty-role turns so they still occupy a slot
// when the history window is taken; TrimHistory drops them afterwards.
func parseHistory(raw json.RawMessage) []models.ChatTurn {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	history := make([]models.ChatTurn, 0, len(entries))
	for _, entry := range entries {
		var turn models.ChatTurn
		if err := json.Unmarshal(entry, &turn); err != nil {
			turn = models.ChatTurn{}
		}
		history = append(history, turn)
	}
	return history
}
