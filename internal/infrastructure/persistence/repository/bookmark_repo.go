package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// BookmarkRepository implements port.BookmarkRepository
type BookmarkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *sql.DB, logger *zap.Logger) port.BookmarkRepository {
	return &BookmarkRepository{db: db, logger: logger}
}

// Get retrieves a bookmark for one employee and template. Returns nil when absent.
func (r *BookmarkRepository) Get(ctx context.Context, employeeID, templateID int64) (*entity.Bookmark, error) {
	query := `SELECT id, employee_id, template_id FROM approval_bookmarks WHERE employee_id = ? AND template_id = ?`

	var b entity.Bookmark
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, employeeID, templateID).
		Scan(&b.ID, &b.EmployeeID, &b.TemplateID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get bookmark", zap.Error(err))
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	return &b, nil
}

// Create inserts a new bookmark
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *entity.Bookmark) error {
	query := `INSERT INTO approval_bookmarks (employee_id, template_id) VALUES (?, ?)`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, bookmark.EmployeeID, bookmark.TemplateID)
	if err != nil {
		r.logger.Error("Failed to create bookmark", zap.Error(err))
		return fmt.Errorf("failed to create bookmark: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get bookmark id: %w", err)
	}
	bookmark.ID = id

	return nil
}

// Delete removes a bookmark. Deleting an absent bookmark is not an error.
func (r *BookmarkRepository) Delete(ctx context.Context, employeeID, templateID int64) error {
	query := `DELETE FROM approval_bookmarks WHERE employee_id = ? AND template_id = ?`

	if _, err := getExecutor(ctx, r.db).ExecContext(ctx, query, employeeID, templateID); err != nil {
		r.logger.Error("Failed to delete bookmark", zap.Error(err))
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	return nil
}

// ListByEmployee retrieves all bookmarks of one employee
func (r *BookmarkRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.Bookmark, error) {
	query := `SELECT id, employee_id, template_id FROM approval_bookmarks WHERE employee_id = ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, employeeID)
	if err != nil {
		r.logger.Error("Failed to list bookmarks", zap.Error(err))
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*entity.Bookmark
	for rows.Next() {
		var b entity.Bookmark
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.TemplateID); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, &b)
	}

	return bookmarks, rows.Err()
}

// Verify interface compliance
var _ port.BookmarkRepository = (*BookmarkRepository)(nil)
