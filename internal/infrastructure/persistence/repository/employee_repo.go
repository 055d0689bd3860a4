package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// EmployeeRepository implements port.EmployeeRepository and doubles as
// the port.DirectoryLookup for notification decoration.
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) *EmployeeRepository {
	return &EmployeeRepository{db: db, logger: logger}
}

// GetByID retrieves an employee by ID. Returns nil when absent.
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	query := `SELECT id, name FROM employees WHERE id = ?`

	var emp entity.Employee
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&emp.ID, &emp.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &emp, nil
}

// NameOf resolves an employee display name, best effort
func (r *EmployeeRepository) NameOf(ctx context.Context, employeeID int64) string {
	emp, err := r.GetByID(ctx, employeeID)
	if err != nil || emp == nil {
		return ""
	}
	return emp.Name
}

// Verify interface compliance
var (
	_ port.EmployeeRepository = (*EmployeeRepository)(nil)
	_ port.DirectoryLookup    = (*EmployeeRepository)(nil)
)
