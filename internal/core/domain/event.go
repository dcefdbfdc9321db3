package domain

import "time"

type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionReset    EventType = "session.reset"
	EventDocumentDeleted EventType = "document.deleted"
)

type WorkspaceEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
