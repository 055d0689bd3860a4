package port

import (
	"context"
	"time"

	"github.com/c4hero/hero-approval/internal/domain/entity"
)

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	Update(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id int64) error
	ListInbox(ctx context.Context, employeeID int64, tab string, limit, offset int) ([]*entity.Document, error)
	CountInbox(ctx context.Context, employeeID int64, tab string) (int, error)
}

// LineRepository defines persistence operations for ApprovalLine
type LineRepository interface {
	Create(ctx context.Context, line *entity.ApprovalLine) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error)
	GetByDocID(ctx context.Context, docID int64) ([]*entity.ApprovalLine, error)
	Update(ctx context.Context, line *entity.ApprovalLine) error
	DeleteByDocID(ctx context.Context, docID int64) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ApprovalLine, error)
}

// ReferenceRepository defines persistence operations for Reference
type ReferenceRepository interface {
	Create(ctx context.Context, ref *entity.Reference) error
	GetByDocID(ctx context.Context, docID int64) ([]*entity.Reference, error)
	DeleteByDocID(ctx context.Context, docID int64) error
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByDocID(ctx context.Context, docID int64) ([]*entity.Attachment, error)
	DeleteByDocID(ctx context.Context, docID int64) error
}

// SequenceRepository defines persistence operations for SequenceCounter.
// NextValue performs the read-increment-write of the counter row as one
// atomic statement under the ambient transaction's exclusive write
// lock, which is held until that transaction commits. Two concurrent
// calls for the same seqType can never observe the same value.
type SequenceRepository interface {
	NextValue(ctx context.Context, seqType string) (int64, error)
}

// TemplateRepository defines persistence operations for Template
type TemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Template, error)
	GetByKey(ctx context.Context, templateKey string) (*entity.Template, error)
	List(ctx context.Context) ([]*entity.Template, error)
}

// BookmarkRepository defines persistence operations for Bookmark
type BookmarkRepository interface {
	Get(ctx context.Context, employeeID, templateID int64) (*entity.Bookmark, error)
	Create(ctx context.Context, bookmark *entity.Bookmark) error
	Delete(ctx context.Context, employeeID, templateID int64) error
	ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.Bookmark, error)
}

// OutboxRepository defines persistence operations for OutboxRecord
type OutboxRepository interface {
	Create(ctx context.Context, rec *entity.OutboxRecord) error
	GetPending(ctx context.Context, limit int) ([]*entity.OutboxRecord, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ExistsForEvent(ctx context.Context, eventID string, recipientID int64) (bool, error)
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// EmployeeRepository defines the directory slice this engine reads
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
