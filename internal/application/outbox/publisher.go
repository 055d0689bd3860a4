// Package outbox implements transactional event publishing: the
// publisher writes event rows inside the caller's transaction, and the
// relay worker delivers committed rows to the in-process dispatcher at
// least once. A rollback therefore never leaves an observable event.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
)

// Publisher implements port.EventPublisher on top of the outbox table.
type Publisher struct {
	outboxRepo port.OutboxRepository
}

// NewPublisher creates an outbox-backed event publisher.
func NewPublisher(outboxRepo port.OutboxRepository) *Publisher {
	return &Publisher{outboxRepo: outboxRepo}
}

// Publish persists the event as an outbox record. It participates in
// whatever transaction the context carries.
func (p *Publisher) Publish(ctx context.Context, evt *event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	rec := &entity.OutboxRecord{
		EventID:   evt.ID,
		EventType: evt.Type.String(),
		DocID:     evt.DocID,
		Payload:   string(payload),
		CreatedAt: evt.Timestamp,
	}

	if err := p.outboxRepo.Create(ctx, rec); err != nil {
		return fmt.Errorf("persist outbox record: %w", err)
	}

	return nil
}

// Decode reconstructs the event carried by an outbox record.
func Decode(rec *entity.OutboxRecord) (*event.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(rec.Payload), &payload); err != nil {
		return nil, fmt.Errorf("decode outbox payload %d: %w", rec.ID, err)
	}

	return &event.Event{
		ID:        rec.EventID,
		Type:      event.Type(rec.EventType),
		DocID:     rec.DocID,
		Payload:   payload,
		Timestamp: rec.CreatedAt,
	}, nil
}

// Verify interface compliance
var _ port.EventPublisher = (*Publisher)(nil)
