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

// LineRepository implements port.LineRepository
type LineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineRepository creates a new approval line repository
func NewLineRepository(db *sql.DB, logger *zap.Logger) port.LineRepository {
	return &LineRepository{db: db, logger: logger}
}

// Create inserts a new approval line
func (r *LineRepository) Create(ctx context.Context, line *entity.ApprovalLine) error {
	query := `
		INSERT INTO approval_lines (doc_id, approver_id, seq, status, comment, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		line.DocID,
		line.ApproverID,
		line.Seq,
		line.Status,
		nullString(line.Comment),
		nullTime(line.ProcessedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create line", zap.Error(err))
		return fmt.Errorf("failed to create line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves a line by ID. Returns nil when absent.
func (r *LineRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error) {
	query := `
		SELECT id, doc_id, approver_id, seq, status, comment, processed_at
		FROM approval_lines
		WHERE id = ?
	`

	line, err := scanLine(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get line", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get line: %w", err)
	}

	return line, nil
}

// GetByDocID retrieves all lines of a document ordered ascending by seq
func (r *LineRepository) GetByDocID(ctx context.Context, docID int64) ([]*entity.ApprovalLine, error) {
	query := `
		SELECT id, doc_id, approver_id, seq, status, comment, processed_at
		FROM approval_lines
		WHERE doc_id = ?
		ORDER BY seq ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to get lines", zap.Int64("doc_id", docID), zap.Error(err))
		return nil, fmt.Errorf("failed to get lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.ApprovalLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// Update persists the mutable line fields
func (r *LineRepository) Update(ctx context.Context, line *entity.ApprovalLine) error {
	query := `
		UPDATE approval_lines
		SET status = ?, comment = ?, processed_at = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		line.Status,
		nullString(line.Comment),
		nullTime(line.ProcessedAt),
		line.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update line", zap.Int64("id", line.ID), zap.Error(err))
		return fmt.Errorf("failed to update line: %w", err)
	}

	return nil
}

// DeleteByDocID removes every line of a document
func (r *LineRepository) DeleteByDocID(ctx context.Context, docID int64) error {
	query := `DELETE FROM approval_lines WHERE doc_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to delete lines", zap.Int64("doc_id", docID), zap.Error(err))
		return fmt.Errorf("failed to delete lines: %w", err)
	}

	return nil
}

// ListPendingOlderThan finds active pending lines of in-progress
// documents that became active before the cutoff. A line is active when
// no lower-seq line of the same document is still pending.
func (r *LineRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ApprovalLine, error) {
	query := `
		SELECT l.id, l.doc_id, l.approver_id, l.seq, l.status, l.comment, l.processed_at
		FROM approval_lines l
		JOIN approval_documents d ON d.id = l.doc_id
		WHERE l.status = ? AND l.seq > 0
			AND d.status = ?
			AND d.updated_at < ?
			AND NOT EXISTS (
				SELECT 1 FROM approval_lines prior
				WHERE prior.doc_id = l.doc_id AND prior.seq > 0
					AND prior.seq < l.seq AND prior.status = ?
			)
		ORDER BY d.updated_at ASC
		LIMIT ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query,
		entity.LineStatusPending,
		entity.DocStatusInProgress,
		cutoff,
		entity.LineStatusPending,
		limit,
	)
	if err != nil {
		r.logger.Error("Failed to list overdue lines", zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.ApprovalLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func scanLine(row rowScanner) (*entity.ApprovalLine, error) {
	var line entity.ApprovalLine
	var comment sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&line.ID,
		&line.DocID,
		&line.ApproverID,
		&line.Seq,
		&line.Status,
		&comment,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	line.Comment = comment.String
	if processedAt.Valid {
		line.ProcessedAt = &processedAt.Time
	}

	return &line, nil
}

// Verify interface compliance
var _ port.LineRepository = (*LineRepository)(nil)
