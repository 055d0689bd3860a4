package entity

import "time"

// OutboxRecord is a domain event persisted in the same transaction as
// the state change that produced it. The relay worker delivers pending
// records at least once and stamps DispatchedAt.
type OutboxRecord struct {
	ID           int64      `json:"id"`
	EventID      string     `json:"event_id"`
	EventType    string     `json:"event_type"`
	DocID        int64      `json:"doc_id"`
	Payload      string     `json:"payload"` // JSON-encoded event payload
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}
