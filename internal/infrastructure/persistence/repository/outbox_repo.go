package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// OutboxRepository implements port.OutboxRepository
type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sql.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

// Create inserts an outbox record. Callers run this inside the same
// transaction as the state change that produced the event.
func (r *OutboxRepository) Create(ctx context.Context, rec *entity.OutboxRecord) error {
	query := `
		INSERT INTO approval_outbox (event_id, event_type, doc_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		rec.EventID, rec.EventType, rec.DocID, rec.Payload, rec.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create outbox record", zap.Error(err))
		return fmt.Errorf("failed to create outbox record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get outbox record id: %w", err)
	}
	rec.ID = id

	return nil
}

// GetPending retrieves undispatched records oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*entity.OutboxRecord, error) {
	query := `
		SELECT id, event_id, event_type, doc_id, payload, created_at, dispatched_at
		FROM approval_outbox
		WHERE dispatched_at IS NULL
		ORDER BY id ASC
		LIMIT ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox records", zap.Error(err))
		return nil, fmt.Errorf("failed to get pending outbox records: %w", err)
	}
	defer rows.Close()

	var records []*entity.OutboxRecord
	for rows.Next() {
		var rec entity.OutboxRecord
		var dispatchedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.DocID,
			&rec.Payload, &rec.CreatedAt, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		if dispatchedAt.Valid {
			t := dispatchedAt.Time
			rec.DispatchedAt = &t
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// MarkDispatched stamps a record as delivered
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE approval_outbox SET dispatched_at = ? WHERE id = ?`

	if _, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, id); err != nil {
		r.logger.Error("Failed to mark outbox record dispatched", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to mark outbox record dispatched: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.OutboxRepository = (*OutboxRepository)(nil)
