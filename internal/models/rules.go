package models

import (
	"encoding/json"
	"time"
)

// RulesResponse returns the current system prompt.
type RulesResponse struct {
	Content string `json:"content"`
}

// UpdateRulesRequest keeps content raw so a non-string value can be rejected
// instead of failing the whole body decode.
type UpdateRulesRequest struct {
	Content json.RawMessage `json:"content"`
}

type UpdateRulesResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RulesUpdatedEvent is broadcast to other instances after a rules write.
type RulesUpdatedEvent struct {
	Type       string    `json:"type"`
	InstanceID string    `json:"instance_id"`
	Bytes      int       `json:"bytes"`
	UpdatedAt  time.Time `json:"updated_at"`
}
