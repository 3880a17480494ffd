package models

// Chat roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn represents a single message in a conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// SendRequest is the payload sent to the send endpoint.
// Image is a data URL ("data:image/jpeg;base64,...").
type SendRequest struct {
	Text    string     `json:"text,omitempty"`
	Image   string     `json:"image,omitempty"`
	History []ChatTurn `json:"history,omitempty"`
}

// SendResponse carries the generated text.
type SendResponse struct {
	Response string `json:"response"`
}
