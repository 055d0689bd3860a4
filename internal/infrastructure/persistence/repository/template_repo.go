package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

// GetByID retrieves a template by ID. Returns nil when absent.
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.Template, error) {
	query := `SELECT id, template_key, name, category FROM approval_templates WHERE id = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByKey retrieves a template by its stable key. Returns nil when absent.
func (r *TemplateRepository) GetByKey(ctx context.Context, templateKey string) (*entity.Template, error) {
	query := `SELECT id, template_key, name, category FROM approval_templates WHERE template_key = ?`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, templateKey))
}

// List retrieves the whole template catalog
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.Template, error) {
	query := `SELECT id, template_key, name, category FROM approval_templates ORDER BY name ASC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.Template
	for rows.Next() {
		var t entity.Template
		var category sql.NullString
		if err := rows.Scan(&t.ID, &t.TemplateKey, &t.Name, &category); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Category = category.String
		templates = append(templates, &t)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) scanOne(row *sql.Row) (*entity.Template, error) {
	var t entity.Template
	var category sql.NullString

	err := row.Scan(&t.ID, &t.TemplateKey, &t.Name, &category)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	t.Category = category.String
	return &t, nil
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
