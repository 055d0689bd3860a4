package service

import (
	"context"
	"fmt"
	"time"

	"github.com/c4hero/hero-approval/internal/apperr"
	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
)

// PresignTTL is how long attachment download links stay valid.
const PresignTTL = 7 * 24 * time.Hour

// LineView is one approval step in a document detail response.
type LineView struct {
	LineID       int64      `json:"line_id"`
	ApproverID   int64      `json:"approver_id"`
	ApproverName string     `json:"approver_name,omitempty"`
	Seq          int        `json:"seq"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// ReferenceView is one informed employee in a document detail response.
type ReferenceView struct {
	EmployeeID   int64  `json:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
}

// AttachmentView carries attachment metadata plus a presigned download
// URL. DownloadURL is empty when presigning failed; the document detail
// still renders.
type AttachmentView struct {
	AttachmentID int64  `json:"attachment_id"`
	OriginName   string `json:"origin_name"`
	FileSize     int64  `json:"file_size"`
	DownloadURL  string `json:"download_url,omitempty"`
}

// DocumentDetail is the full read model of one document.
type DocumentDetail struct {
	DocID       int64            `json:"doc_id"`
	DocNo       string           `json:"doc_no,omitempty"`
	TemplateKey string           `json:"template_key"`
	Title       string           `json:"title"`
	Details     string           `json:"details"`
	Status      string           `json:"status"`
	DrafterID   int64            `json:"drafter_id"`
	DrafterName string           `json:"drafter_name,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Lines       []LineView       `json:"lines"`
	References  []ReferenceView  `json:"references"`
	Attachments []AttachmentView `json:"attachments"`
}

// DocumentSummary is one inbox row.
type DocumentSummary struct {
	DocID       int64     `json:"doc_id"`
	DocNo       string    `json:"doc_no,omitempty"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	DrafterID   int64     `json:"drafter_id"`
	DrafterName string    `json:"drafter_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboxPage is a paginated inbox listing.
type InboxPage struct {
	Documents     []DocumentSummary `json:"documents"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int               `json:"total_elements"`
}

// TemplateView is one catalog entry with the caller's bookmark flag.
type TemplateView struct {
	TemplateID  int64  `json:"template_id"`
	TemplateKey string `json:"template_key"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Bookmarked  bool   `json:"bookmarked"`
}

// QueryService is the read side of the approval engine.
type QueryService interface {
	GetDocumentDetail(ctx context.Context, docID int64) (*DocumentDetail, error)
	ListInbox(ctx context.Context, employeeID int64, tab string, page, size int) (*InboxPage, error)
	ListTemplates(ctx context.Context, employeeID int64) ([]TemplateView, error)
	ToggleBookmark(ctx context.Context, employeeID, templateID int64) (bool, error)
}

type queryServiceImpl struct {
	docRepo      port.DocumentRepository
	lineRepo     port.LineRepository
	refRepo      port.ReferenceRepository
	attRepo      port.AttachmentRepository
	templateRepo port.TemplateRepository
	bookmarkRepo port.BookmarkRepository
	store        port.AttachmentStore
	directory    port.DirectoryLookup
	logger       Logger
}

// NewQueryService creates the read-side service.
func NewQueryService(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	refRepo port.ReferenceRepository,
	attRepo port.AttachmentRepository,
	templateRepo port.TemplateRepository,
	bookmarkRepo port.BookmarkRepository,
	store port.AttachmentStore,
	directory port.DirectoryLookup,
	logger Logger,
) QueryService {
	return &queryServiceImpl{
		docRepo:      docRepo,
		lineRepo:     lineRepo,
		refRepo:      refRepo,
		attRepo:      attRepo,
		templateRepo: templateRepo,
		bookmarkRepo: bookmarkRepo,
		store:        store,
		directory:    directory,
		logger:       logger,
	}
}

// GetDocumentDetail assembles the full read model, decorating lines and
// references with best-effort names and attachments with presigned
// download URLs.
func (s *queryServiceImpl) GetDocumentDetail(ctx context.Context, docID int64) (*DocumentDetail, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document", docID)
	}

	template, err := s.templateRepo.GetByID(ctx, doc.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	detail := &DocumentDetail{
		DocID:       doc.ID,
		DocNo:       doc.DocNo,
		TemplateKey: templateKeyOf(template),
		Title:       doc.Title,
		Details:     doc.Details,
		Status:      doc.Status,
		DrafterID:   doc.DrafterID,
		DrafterName: s.directory.NameOf(ctx, doc.DrafterID),
		CreatedAt:   doc.CreatedAt,
		CompletedAt: doc.CompletedAt,
	}

	lines, err := s.lineRepo.GetByDocID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	for _, l := range lines {
		detail.Lines = append(detail.Lines, LineView{
			LineID:       l.ID,
			ApproverID:   l.ApproverID,
			ApproverName: s.directory.NameOf(ctx, l.ApproverID),
			Seq:          l.Seq,
			Status:       l.Status,
			Comment:      l.Comment,
			ProcessedAt:  l.ProcessedAt,
		})
	}

	refs, err := s.refRepo.GetByDocID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	for _, r := range refs {
		detail.References = append(detail.References, ReferenceView{
			EmployeeID:   r.EmployeeID,
			EmployeeName: s.directory.NameOf(ctx, r.EmployeeID),
		})
	}

	attachments, err := s.attRepo.GetByDocID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	for _, att := range attachments {
		view := AttachmentView{
			AttachmentID: att.ID,
			OriginName:   att.OriginName,
			FileSize:     att.FileSize,
		}
		url, err := s.store.Presign(att.StorageKey, PresignTTL)
		if err != nil {
			s.logger.Error("Failed to presign attachment", "attachment_id", att.ID, "error", err)
		} else {
			view.DownloadURL = url
		}
		detail.Attachments = append(detail.Attachments, view)
	}

	return detail, nil
}

// ListInbox returns one page of the employee's documents for a tab
// (all, draft, inprogress, approved, rejected).
func (s *queryServiceImpl) ListInbox(ctx context.Context, employeeID int64, tab string, page, size int) (*InboxPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	} else if size > 100 {
		size = 100
	}
	if tab == "" {
		tab = "all"
	}

	offset := (page - 1) * size
	docs, err := s.docRepo.ListInbox(ctx, employeeID, tab, size, offset)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	total, err := s.docRepo.CountInbox(ctx, employeeID, tab)
	if err != nil {
		return nil, fmt.Errorf("count inbox: %w", err)
	}

	result := &InboxPage{
		Documents:     make([]DocumentSummary, 0, len(docs)),
		Page:          page,
		Size:          size,
		TotalElements: total,
	}
	for _, doc := range docs {
		result.Documents = append(result.Documents, DocumentSummary{
			DocID:       doc.ID,
			DocNo:       doc.DocNo,
			Title:       doc.Title,
			Status:      doc.Status,
			DrafterID:   doc.DrafterID,
			DrafterName: s.directory.NameOf(ctx, doc.DrafterID),
			CreatedAt:   doc.CreatedAt,
		})
	}

	return result, nil
}

// ListTemplates returns the template catalog with the caller's
// bookmarks flagged.
func (s *queryServiceImpl) ListTemplates(ctx context.Context, employeeID int64) ([]TemplateView, error) {
	templates, err := s.templateRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	bookmarks, err := s.bookmarkRepo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	bookmarked := make(map[int64]bool, len(bookmarks))
	for _, b := range bookmarks {
		bookmarked[b.TemplateID] = true
	}

	views := make([]TemplateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, TemplateView{
			TemplateID:  t.ID,
			TemplateKey: t.TemplateKey,
			Name:        t.Name,
			Category:    t.Category,
			Bookmarked:  bookmarked[t.ID],
		})
	}

	return views, nil
}

// ToggleBookmark flips the bookmark: present deletes it, absent creates
// it. Returns the resulting state.
func (s *queryServiceImpl) ToggleBookmark(ctx context.Context, employeeID, templateID int64) (bool, error) {
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return false, fmt.Errorf("get template: %w", err)
	}
	if template == nil {
		return false, apperr.NotFound("template", templateID)
	}

	existing, err := s.bookmarkRepo.Get(ctx, employeeID, templateID)
	if err != nil {
		return false, fmt.Errorf("get bookmark: %w", err)
	}

	if existing != nil {
		if err := s.bookmarkRepo.Delete(ctx, employeeID, templateID); err != nil {
			return false, fmt.Errorf("delete bookmark: %w", err)
		}
		return false, nil
	}

	if err := s.bookmarkRepo.Create(ctx, &entity.Bookmark{EmployeeID: employeeID, TemplateID: templateID}); err != nil {
		return false, fmt.Errorf("create bookmark: %w", err)
	}
	return true, nil
}
