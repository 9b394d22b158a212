package types

import (
	"encoding/json"
	"strings"
)

// Message is one turn of a conversation.
type Message struct {
	// Role of the author: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Text content of the turn.
	// example: Hi
	Content string `json:"content" example:"Hi"`
}

// Conversation is an ordered list of messages. Legacy clients send a bare
// string instead of a message array; UnmarshalJSON coerces such input to a
// single user turn so the rest of the pipeline only sees messages.
type Conversation []Message

func (c *Conversation) UnmarshalJSON(b []byte) error {
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err == nil {
		*c = msgs
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = Conversation{{Role: "user", Content: s}}
		return nil
	}
	// Last resort: keep the raw text so the request is not silently dropped.
	*c = Conversation{{Role: "user", Content: strings.TrimSpace(string(b))}}
	return nil
}

// GenerateRequest represents a generation request payload.
type GenerateRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: gemini-2.5-flash-lite
	Model string `json:"model,omitempty" example:"gemini-2.5-flash-lite"`
	// Ordered conversation turns. A plain string is accepted for legacy clients.
	Messages Conversation `json:"messages"`
	// If true, stream results as server-sent events instead of one JSON body.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
}

// GenerateResponse is the buffered (non-streaming) success payload.
type GenerateResponse struct {
	// Trimmed output of the generation tool.
	// example: Hello! How can I help?
	Text string `json:"text" example:"Hello! How can I help?"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of permitted models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: gpt-x
	Error string `json:"error" example:"model not found: gpt-x"`
	// Machine-readable failure kind when the generation itself failed.
	// example: TIMEOUT
	Kind string `json:"kind,omitempty" example:"TIMEOUT"`
	// HTTP status code.
	// example: 504
	Code int `json:"code" example:"504"`
}
