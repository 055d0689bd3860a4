package entity

import "time"

// Notification is a per-recipient record written by the notification
// consumer when a workflow event is delivered. EventID makes recording
// idempotent under outbox redelivery.
type Notification struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`
	DocID       int64     `json:"doc_id"`
	RecipientID int64     `json:"recipient_id"`
	EventType   string    `json:"event_type"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}
