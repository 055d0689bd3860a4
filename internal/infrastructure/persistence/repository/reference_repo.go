package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// ReferenceRepository implements port.ReferenceRepository
type ReferenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *sql.DB, logger *zap.Logger) port.ReferenceRepository {
	return &ReferenceRepository{db: db, logger: logger}
}

// Create inserts a new reference
func (r *ReferenceRepository) Create(ctx context.Context, ref *entity.Reference) error {
	query := `INSERT INTO approval_references (doc_id, employee_id) VALUES (?, ?)`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, ref.DocID, ref.EmployeeID)
	if err != nil {
		r.logger.Error("Failed to create reference", zap.Error(err))
		return fmt.Errorf("failed to create reference: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ref.ID = id
	return nil
}

// GetByDocID retrieves all references of a document
func (r *ReferenceRepository) GetByDocID(ctx context.Context, docID int64) ([]*entity.Reference, error) {
	query := `SELECT id, doc_id, employee_id FROM approval_references WHERE doc_id = ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to get references", zap.Int64("doc_id", docID), zap.Error(err))
		return nil, fmt.Errorf("failed to get references: %w", err)
	}
	defer rows.Close()

	var refs []*entity.Reference
	for rows.Next() {
		var ref entity.Reference
		if err := rows.Scan(&ref.ID, &ref.DocID, &ref.EmployeeID); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, &ref)
	}

	return refs, rows.Err()
}

// DeleteByDocID removes every reference of a document
func (r *ReferenceRepository) DeleteByDocID(ctx context.Context, docID int64) error {
	query := `DELETE FROM approval_references WHERE doc_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, docID)
	if err != nil {
		r.logger.Error("Failed to delete references", zap.Int64("doc_id", docID), zap.Error(err))
		return fmt.Errorf("failed to delete references: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.ReferenceRepository = (*ReferenceRepository)(nil)
