package service

import (
	"context"
	"fmt"

	"github.com/c4hero/hero-approval/internal/apperr"
	"github.com/c4hero/hero-approval/internal/application/port"
)

// SequenceAllocator mints document numbers: unique, gap-free and
// strictly increasing within one period key.
//
// The read-increment-write on the counter row happens as one atomic
// statement inside the caller's transaction. The storage backend's
// exclusive write lock is held until that transaction commits, so a
// concurrent allocation for the same period blocks rather than
// observing a duplicate value, and a rollback returns the number to the
// series without leaving a gap.
type SequenceAllocator interface {
	// Allocate returns the next formatted number for the period, e.g.
	// Allocate(ctx, "HERO-2026") -> "HERO-2026-00001".
	Allocate(ctx context.Context, periodKey string) (string, error)
}

type sequenceAllocatorImpl struct {
	seqRepo port.SequenceRepository
	logger  Logger
}

// NewSequenceAllocator creates a SequenceAllocator backed by the
// sequence repository.
func NewSequenceAllocator(seqRepo port.SequenceRepository, logger Logger) SequenceAllocator {
	return &sequenceAllocatorImpl{seqRepo: seqRepo, logger: logger}
}

// Allocate increments the period's counter and formats the result with
// a 5-digit zero-padded suffix. Persistence failures surface as
// SEQUENCE_GENERATION, distinct from validation errors, so a caller can
// abort an otherwise-completed approval.
func (a *sequenceAllocatorImpl) Allocate(ctx context.Context, periodKey string) (string, error) {
	val, err := a.seqRepo.NextValue(ctx, periodKey)
	if err != nil {
		a.logger.Error("Failed to allocate sequence number", "period_key", periodKey, "error", err)
		return "", apperr.Wrap(apperr.CodeSequenceGeneration,
			fmt.Sprintf("allocate number for period %s", periodKey), err)
	}

	return fmt.Sprintf("%s-%05d", periodKey, val), nil
}
