package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `
	id, template_id, drafter_id, doc_no, title, details, status,
	completed_at, created_at, updated_at
`

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO approval_documents (
			template_id, drafter_id, doc_no, title, details, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		doc.TemplateID,
		doc.DrafterID,
		nullString(doc.DocNo),
		doc.Title,
		doc.Details,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByID retrieves a document by ID. Returns nil when absent.
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM approval_documents WHERE id = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// Update persists the mutable document fields
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE approval_documents
		SET doc_no = ?, title = ?, details = ?, status = ?,
			completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		nullString(doc.DocNo),
		doc.Title,
		doc.Details,
		doc.Status,
		nullTime(doc.CompletedAt),
		doc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update document", zap.Int64("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}

// Delete removes a document row
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM approval_documents WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete document", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// inboxFilter maps an inbox tab to its status predicate. The
// involvement predicate (drafter, approver or reference) is shared.
func inboxFilter(tab string) (string, bool) {
	switch tab {
	case "all":
		return "", true
	case "draft":
		return entity.DocStatusDraft, true
	case "inprogress":
		return entity.DocStatusInProgress, true
	case "approved":
		return entity.DocStatusApproved, true
	case "rejected":
		return entity.DocStatusRejected, true
	default:
		return "", false
	}
}

const inboxInvolvement = `
	(d.drafter_id = ?
		OR EXISTS (SELECT 1 FROM approval_lines l WHERE l.doc_id = d.id AND l.approver_id = ?)
		OR EXISTS (SELECT 1 FROM approval_references ref WHERE ref.doc_id = d.id AND ref.employee_id = ?))
`

// ListInbox retrieves one page of documents the employee is involved in
func (r *DocumentRepository) ListInbox(ctx context.Context, employeeID int64, tab string, limit, offset int) ([]*entity.Document, error) {
	status, ok := inboxFilter(tab)
	if !ok {
		return nil, fmt.Errorf("unknown inbox tab %q", tab)
	}

	query := `
		SELECT d.id, d.template_id, d.drafter_id, d.doc_no, d.title, d.details, d.status,
			d.completed_at, d.created_at, d.updated_at
		FROM approval_documents d
		WHERE ` + inboxInvolvement
	args := []interface{}{employeeID, employeeID, employeeID}

	if status != "" {
		query += ` AND d.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY d.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list inbox", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// CountInbox counts the documents behind ListInbox
func (r *DocumentRepository) CountInbox(ctx context.Context, employeeID int64, tab string) (int, error) {
	status, ok := inboxFilter(tab)
	if !ok {
		return 0, fmt.Errorf("unknown inbox tab %q", tab)
	}

	query := `SELECT COUNT(*) FROM approval_documents d WHERE ` + inboxInvolvement
	args := []interface{}{employeeID, employeeID, employeeID}
	if status != "" {
		query += ` AND d.status = ?`
		args = append(args, status)
	}

	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count inbox", zap.Int64("employee_id", employeeID), zap.Error(err))
		return 0, fmt.Errorf("failed to count inbox: %w", err)
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var docNo sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.TemplateID,
		&doc.DrafterID,
		&docNo,
		&doc.Title,
		&doc.Details,
		&doc.Status,
		&completedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.DocNo = docNo.String
	if completedAt.Valid {
		doc.CompletedAt = &completedAt.Time
	}

	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*entity.Document, error) {
	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// getExecutor returns the ambient transaction when present
func getExecutor(ctx context.Context, db *sql.DB) sqlite.Executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
