package port

import (
	"context"

	"github.com/c4hero/hero-approval/internal/domain/event"
)

// EventPublisher records a domain event for delivery. The outbox
// implementation persists the event inside the caller's transaction, so
// a rollback leaves no observable event.
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}

// DirectoryLookup resolves employee display names, best effort: a miss
// returns the empty string and never an error.
type DirectoryLookup interface {
	NameOf(ctx context.Context, employeeID int64) string
}
