package services

import "quote-assistant-backend/internal/models"

// historyWindow is how many turns before the newest one are sent as context.
// The newest turn is the message being answered and is sent separately.
const historyWindow = 3

// TrimHistory returns up to historyWindow turns preceding the newest entry,
// oldest first, keeping only user and assistant turns.
func TrimHistory(history []models.ChatTurn) []models.ChatTurn {
	if len(history) <= 1 {
		return nil
	}

	end := len(history) - 1
	start := end - historyWindow
	if start < 0 {
		start = 0
	}

	trimmed := make([]models.ChatTurn, 0, end-start)
	for _, turn := range history[start:end] {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			continue
		}
		trimmed = append(trimmed, turn)
	}
	return trimmed
}
