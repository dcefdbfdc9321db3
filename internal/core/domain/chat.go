package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is the backend reply to one chat turn.
type Answer struct {
	Text      string `json:"answer"`
	SessionID string `json:"session_id"`
}

type ChatSnapshot struct {
	SessionID  string    `json:"session_id,omitempty"`
	Transcript []Message `json:"transcript"`
	Pending    bool      `json:"pending"`
}
