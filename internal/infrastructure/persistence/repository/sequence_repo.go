package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"go.uber.org/zap"
)

// SequenceRepository implements port.SequenceRepository.
//
// NextValue relies on SQLite's database-level write lock for the
// critical section: the upsert takes the write lock inside the ambient
// transaction and holds it until commit, so a concurrent NextValue for
// the same key blocks (up to the busy timeout) instead of reading a
// stale counter. This is the row-lock equivalent the allocator
// contract requires.
type SequenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{db: db, logger: logger}
}

// NextValue increments the counter for seqType and returns the new
// value. The row is created lazily on first allocation.
func (r *SequenceRepository) NextValue(ctx context.Context, seqType string) (int64, error) {
	query := `
		INSERT INTO approval_sequences (seq_type, current_val)
		VALUES (?, 1)
		ON CONFLICT(seq_type) DO UPDATE SET current_val = current_val + 1
		RETURNING current_val
	`

	var val int64
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, seqType).Scan(&val)
	if err != nil {
		r.logger.Error("Failed to advance sequence", zap.String("seq_type", seqType), zap.Error(err))
		return 0, fmt.Errorf("failed to advance sequence %s: %w", seqType, err)
	}

	return val, nil
}

// Verify interface compliance
var _ port.SequenceRepository = (*SequenceRepository)(nil)
