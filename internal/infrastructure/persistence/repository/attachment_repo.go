package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{db: db, logger: logger}
}

// Create inserts a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO approval_attachments (doc_id, origin_name, storage_key, file_size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		att.DocID,
		att.OriginName,
		att.StorageKey,
		att.FileSize,
		att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment", zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetByDocID retrieves all attachments of a document
func (r *AttachmentRepository) GetByDocID(ctx context.Context, docID int64) ([]*entity.Attachment, error) {
	query := `
		SELECT id, doc_id, origin_name, storage_key, file_size, created_at
		FROM approval_attachments
		WHERE doc_id = ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to get attachments", zap.Int64("doc_id", docID), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.Attachment
	for rows.Next() {
		var att entity.Attachment
		err := rows.Scan(&att.ID, &att.DocID, &att.OriginName, &att.StorageKey, &att.FileSize, &att.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	return attachments, rows.Err()
}

// DeleteByDocID removes every attachment record of a document
func (r *AttachmentRepository) DeleteByDocID(ctx context.Context, docID int64) error {
	query := `DELETE FROM approval_attachments WHERE doc_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to delete attachments", zap.Int64("doc_id", docID), zap.Error(err))
		return fmt.Errorf("failed to delete attachments: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
