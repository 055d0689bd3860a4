package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a workflow domain event. Payload keys are event-type
// specific; typed accessors tolerate the loss of number types across
// JSON round-trips through the outbox.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	DocID     int64                  `json:"doc_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates an event with a generated ID and current timestamp.
func New(eventType Type, docID int64, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		DocID:     docID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// PayloadString retrieves a string value from the payload
func (e *Event) PayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// PayloadInt retrieves an int64 value from the payload
func (e *Event) PayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// Payload keys shared by the workflow events.
const (
	KeyTemplateKey = "template_key"
	KeyTitle       = "title"
	KeyDetails     = "details"
	KeyDrafterID   = "drafter_id"
	KeyDrafterName = "drafter_name"
	KeyApproverID  = "approver_id"
	KeySeq         = "seq"
	KeyComment     = "comment"
	KeyRejecterID  = "rejecter_id"
	KeyWaitingDays = "waiting_days"
)
