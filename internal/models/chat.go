package models

import "encoding/json"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles the upstream accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the payload sent to POST /ask.
// History stays raw so a non-array value can be rejected instead of silently ignored.
type AskRequest struct {
	Question string          `json:"question,omitempty"`
	History  json.RawMessage `json:"history,omitempty"`
}

// AskResponse is the reply returned to the browser.
type AskResponse struct {
	Answer    string `json:"answer"`
	Truncated bool   `json:"truncated,omitempty"`
}
