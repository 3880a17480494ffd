package services

import (
	"strings"

	"quote-assistant-backend/internal/models"
)

// fallbackText is sent when a text-only turn arrives with empty text.
const fallbackText = "Hello"

// Part is one piece of a message: either TextPart or ImagePart.
type Part interface {
	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

// ImagePart references an image by data URL.
type ImagePart struct {
	DataURL string
}

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}

// Message is one conversation turn as sent to the model.
type Message struct {
	Role  string
	Parts []Part
}

// Payload is everything the generation client needs for one call.
// System is empty when no directive should be attached.
type Payload struct {
	System   string
	Messages []Message
}

// HasImage reports whether any message carries an image part.
func (p Payload) HasImage() bool {
	for _, msg := range p.Messages {
		for _, part := range msg.Parts {
			if _, ok := part.(ImagePart); ok {
				return true
			}
		}
	}
	return false
}

// BuildOptions tunes how a payload is assembled for the selected assistant.
type BuildOptions struct {
	// AttachRulesToImages sends the system prompt with image turns too.
	AttachRulesToImages bool
}

// BuildPayload assembles the generation payload for one send request.
//
// Image turns are single-turn: history is ignored and the system prompt is only
// attached when opts.AttachRulesToImages is set. Text turns carry the trimmed
// history followed by the new user message, with the system prompt as a
// separate directive.
func BuildPayload(req models.SendRequest, systemPrompt string, opts BuildOptions) (Payload, error) {
	text := req.Text
	image := strings.TrimSpace(req.Image)

	if text == "" && image == "" {
		return Payload{}, &ValidationError{Message: "Text or image is required"}
	}

	if image != "" {
		parts := make([]Part, 0, 2)
		if text != "" {
			parts = append(parts, TextPart{Text: text})
		}
		parts = append(parts, ImagePart{DataURL: image})

		payload := Payload{
			Messages: []Message{{Role: models.RoleUser, Parts: parts}},
		}
		if opts.AttachRulesToImages {
			payload.System = systemPrompt
		}
		return payload, nil
	}

	history := TrimHistory(req.History)
	messages := make([]Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, Message{
			Role:  turn.Role,
			Parts: []Part{TextPart{Text: turn.Content}},
		})
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackText
	}
	messages = append(messages, Message{
		Role:  models.RoleUser,
		Parts: []Part{TextPart{Text: text}},
	})

	return Payload{System: systemPrompt, Messages: messages}, nil
}
