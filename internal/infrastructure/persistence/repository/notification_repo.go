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

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO approval_notifications (event_id, doc_id, recipient_id, event_type, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		n.EventID, n.DocID, n.RecipientID, n.EventType, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification id: %w", err)
	}
	n.ID = id

	return nil
}

// ExistsForEvent reports whether a notification was already recorded
// for this event and recipient. Consumers use it to stay idempotent
// under outbox redelivery.
func (r *NotificationRepository) ExistsForEvent(ctx context.Context, eventID string, recipientID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM approval_notifications WHERE event_id = ? AND recipient_id = ?)`

	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, eventID, recipientID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check notification existence", zap.Error(err))
		return false, fmt.Errorf("failed to check notification existence: %w", err)
	}

	return exists, nil
}

// ListByRecipient retrieves notifications of one recipient newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, event_id, doc_id, recipient_id, event_type, message, read, created_at
		FROM approval_notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.DocID, &n.RecipientID,
			&n.EventType, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkRead marks a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	query := `UPDATE approval_notifications SET read = 1 WHERE id = ?`

	if _, err := getExecutor(ctx, r.db).ExecContext(ctx, query, id); err != nil {
		r.logger.Error("Failed to mark notification read", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
