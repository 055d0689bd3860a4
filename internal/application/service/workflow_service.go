package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c4hero/hero-approval/internal/apperr"
	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
	"github.com/c4hero/hero-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LineInput is one requested approval step.
type LineInput struct {
	ApproverID int64
	Seq        int
}

// ReferenceInput names an employee to inform on completion.
type ReferenceInput struct {
	EmployeeID int64
}

// FileUpload is an attachment carried with a create/update call.
type FileUpload struct {
	Name    string
	Content []byte
}

// DocumentRequest is the content of a create/update/submit call.
type DocumentRequest struct {
	FormType   string
	Title      string
	Details    string
	Lines      []LineInput
	References []ReferenceInput
}

// ApprovalAction is one approver decision on a line.
type ApprovalAction struct {
	LineID  int64
	Action  string
	Comment string
}

// ApprovalResult reports the document state after an approval action.
type ApprovalResult struct {
	DocStatus string `json:"doc_status"`
	DocNo     string `json:"doc_no,omitempty"`
}

// WorkflowService is the command surface of the approval engine. Every
// method runs as one transaction: guards fire before any mutation, and
// events are published through the transactional outbox so they commit
// or vanish together with the state change.
type WorkflowService interface {
	CreateDocument(ctx context.Context, drafterID int64, req DocumentRequest, files []FileUpload, initialStatus string) (int64, error)
	UpdateDraftDocument(ctx context.Context, employeeID, docID int64, req DocumentRequest, files []FileUpload) (int64, error)
	SubmitDraftDocument(ctx context.Context, employeeID, docID int64, req DocumentRequest, files []FileUpload) (int64, error)
	ProcessApproval(ctx context.Context, action ApprovalAction, employeeID int64) (*ApprovalResult, error)
	CancelDocument(ctx context.Context, docID int64) error
	DeleteDocument(ctx context.Context, docID int64) error
}

const attachmentDir = "approval"

type workflowServiceImpl struct {
	docRepo      port.DocumentRepository
	lineRepo     port.LineRepository
	refRepo      port.ReferenceRepository
	attRepo      port.AttachmentRepository
	templateRepo port.TemplateRepository
	allocator    SequenceAllocator
	store        port.AttachmentStore
	publisher    port.EventPublisher
	directory    port.DirectoryLookup
	txManager    port.TransactionManager
	docNoPrefix  string
	logger       Logger
}

// NewWorkflowService creates the workflow orchestrator.
func NewWorkflowService(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	refRepo port.ReferenceRepository,
	attRepo port.AttachmentRepository,
	templateRepo port.TemplateRepository,
	allocator SequenceAllocator,
	store port.AttachmentStore,
	publisher port.EventPublisher,
	directory port.DirectoryLookup,
	txManager port.TransactionManager,
	docNoPrefix string,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		docRepo:      docRepo,
		lineRepo:     lineRepo,
		refRepo:      refRepo,
		attRepo:      attRepo,
		templateRepo: templateRepo,
		allocator:    allocator,
		store:        store,
		publisher:    publisher,
		directory:    directory,
		txManager:    txManager,
		docNoPrefix:  docNoPrefix,
		logger:       logger,
	}
}

// CreateDocument creates a document as a draft or submits it directly.
// The drafter's seq=1 line is stored pre-approved; with initial status
// INPROGRESS the line set is evaluated immediately, either auto-
// completing an only-drafter document or notifying the seq=2 approver.
func (s *workflowServiceImpl) CreateDocument(
	ctx context.Context,
	drafterID int64,
	req DocumentRequest,
	files []FileUpload,
	initialStatus string,
) (int64, error) {
	if initialStatus != entity.DocStatusDraft && initialStatus != entity.DocStatusInProgress {
		return 0, apperr.InvalidState(fmt.Sprintf("unsupported initial status %q", initialStatus))
	}

	var docID int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		template, err := s.resolveTemplate(txCtx, req.FormType)
		if err != nil {
			return err
		}

		now := time.Now()
		doc := &entity.Document{
			TemplateID: template.ID,
			DrafterID:  drafterID,
			Title:      req.Title,
			Details:    req.Details,
			Status:     initialStatus,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		if err := s.saveLines(txCtx, doc.ID, req.Lines, now); err != nil {
			return err
		}
		if err := s.saveReferences(txCtx, doc.ID, req.References); err != nil {
			return err
		}
		if err := s.saveAttachments(txCtx, doc, files); err != nil {
			return err
		}

		if initialStatus == entity.DocStatusInProgress {
			if err := s.evaluateSubmission(txCtx, doc, template); err != nil {
				return err
			}
		}

		docID = doc.ID
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create document", "error", err, "drafter_id", drafterID)
		return 0, err
	}

	s.logger.Info("Document created", "doc_id", docID, "drafter_id", drafterID, "status", initialStatus)
	return docID, nil
}

// UpdateDraftDocument replaces the content, lines, references and
// attachments of a draft. Lines are never patched in place: the old set
// is deleted and the new set inserted wholesale.
func (s *workflowServiceImpl) UpdateDraftDocument(
	ctx context.Context,
	employeeID, docID int64,
	req DocumentRequest,
	files []FileUpload,
) (int64, error) {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.loadDraftOwnedBy(txCtx, docID, employeeID)
		if err != nil {
			return err
		}
		return s.replaceDraftContent(txCtx, doc, req, files)
	})
	if err != nil {
		s.logger.Error("Failed to update draft", "error", err, "doc_id", docID)
		return 0, err
	}

	s.logger.Info("Draft updated", "doc_id", docID)
	return docID, nil
}

// SubmitDraftDocument applies the same replacement as
// UpdateDraftDocument and then submits the document, auto-completing it
// when the line set holds only the drafter.
func (s *workflowServiceImpl) SubmitDraftDocument(
	ctx context.Context,
	employeeID, docID int64,
	req DocumentRequest,
	files []FileUpload,
) (int64, error) {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.loadDraftOwnedBy(txCtx, docID, employeeID)
		if err != nil {
			return err
		}
		if err := s.replaceDraftContent(txCtx, doc, req, files); err != nil {
			return err
		}

		template, err := s.templateRepo.GetByID(txCtx, doc.TemplateID)
		if err != nil {
			return fmt.Errorf("get template: %w", err)
		}
		if template == nil {
			return apperr.NotFound("template", doc.TemplateID)
		}

		return s.evaluateSubmission(txCtx, doc, template)
	})
	if err != nil {
		s.logger.Error("Failed to submit draft", "error", err, "doc_id", docID)
		return 0, err
	}

	s.logger.Info("Draft submitted", "doc_id", docID)
	return docID, nil
}

// ProcessApproval applies one approver decision. A rejection is final
// for the whole document; an approval either completes the document
// (allocating its number) or advances the active line.
func (s *workflowServiceImpl) ProcessApproval(
	ctx context.Context,
	action ApprovalAction,
	employeeID int64,
) (*ApprovalResult, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}

	var result *ApprovalResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		line, err := s.lineRepo.GetByID(txCtx, action.LineID)
		if err != nil {
			return fmt.Errorf("get line: %w", err)
		}
		if line == nil {
			return apperr.NotFound("approval line", action.LineID)
		}

		if line.ApproverID != employeeID {
			return apperr.LineAuthority("not the approver of this line")
		}
		if line.Status != entity.LineStatusPending {
			return apperr.InvalidState("approval already processed")
		}

		doc, err := s.docRepo.GetByID(txCtx, line.DocID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil {
			return apperr.NotFound("document", line.DocID)
		}
		if doc.Status != entity.DocStatusInProgress {
			return apperr.InvalidState("document is not in progress")
		}

		template, err := s.templateRepo.GetByID(txCtx, doc.TemplateID)
		if err != nil {
			return fmt.Errorf("get template: %w", err)
		}
		if template == nil {
			return apperr.NotFound("template", doc.TemplateID)
		}

		if action.Action == entity.ActionReject {
			result, err = s.rejectLine(txCtx, doc, line, template, action.Comment, employeeID)
		} else {
			result, err = s.approveLine(txCtx, doc, line, template)
		}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to process approval", "error", err, "line_id", action.LineID, "action", action.Action)
		return nil, err
	}

	s.logger.Info("Approval processed",
		"line_id", action.LineID,
		"action", action.Action,
		"doc_status", result.DocStatus,
	)
	return result, nil
}

// CancelDocument recalls an in-progress document back to draft.
func (s *workflowServiceImpl) CancelDocument(ctx context.Context, docID int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByID(txCtx, docID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil {
			return apperr.NotFound("document", docID)
		}

		if err := s.fire(txCtx, doc, workflow.TriggerRecall); err != nil {
			return err
		}
		if err := s.docRepo.Update(txCtx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		template, err := s.templateRepo.GetByID(txCtx, doc.TemplateID)
		if err != nil {
			return fmt.Errorf("get template: %w", err)
		}

		evt := event.New(event.TypeDocumentRecalled, doc.ID, map[string]interface{}{
			event.KeyTemplateKey: templateKeyOf(template),
			event.KeyTitle:       doc.Title,
			event.KeyDrafterID:   doc.DrafterID,
		})
		return s.publisher.Publish(txCtx, evt)
	})
	if err != nil {
		s.logger.Error("Failed to recall document", "error", err, "doc_id", docID)
		return err
	}

	s.logger.Info("Document recalled", "doc_id", docID)
	return nil
}

// DeleteDocument removes a draft and everything attached to it.
func (s *workflowServiceImpl) DeleteDocument(ctx context.Context, docID int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByID(txCtx, docID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil {
			return apperr.NotFound("document", docID)
		}
		if doc.Status != entity.DocStatusDraft {
			return apperr.InvalidState("only draft documents can be deleted")
		}

		if err := s.deleteAttachments(txCtx, docID); err != nil {
			return err
		}
		if err := s.lineRepo.DeleteByDocID(txCtx, docID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := s.refRepo.DeleteByDocID(txCtx, docID); err != nil {
			return fmt.Errorf("delete references: %w", err)
		}
		if err := s.docRepo.Delete(txCtx, docID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete document", "error", err, "doc_id", docID)
		return err
	}

	s.logger.Info("Document deleted", "doc_id", docID)
	return nil
}

// --- transition helpers ---

// fire validates the trigger against the document's state machine and
// applies the resulting status. Invalid transitions surface as
// INVALID_STATE before anything is persisted.
func (s *workflowServiceImpl) fire(ctx context.Context, doc *entity.Document, trigger workflow.Trigger) error {
	machine := workflow.NewDocumentMachine(workflow.State(doc.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		return apperr.Wrap(apperr.CodeInvalidState,
			fmt.Sprintf("cannot %s a %s document", strings.ToLower(trigger.String()), doc.Status), err)
	}
	doc.ChangeStatus(machine.State().String())
	return nil
}

// evaluateSubmission runs the submission rules on a document whose
// content is already persisted: only-drafter sets complete immediately,
// everything else goes INPROGRESS with the seq=2 approver notified.
func (s *workflowServiceImpl) evaluateSubmission(ctx context.Context, doc *entity.Document, template *entity.Template) error {
	lines, err := s.lineRepo.GetByDocID(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("load lines: %w", err)
	}
	lineSet := workflow.NewLineSet(lines)

	if lineSet.OnlyDrafter() {
		return s.completeDocument(ctx, doc, template)
	}

	if doc.Status == entity.DocStatusDraft {
		if err := s.fire(ctx, doc, workflow.TriggerSubmit); err != nil {
			return err
		}
		if err := s.docRepo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
	}

	if first := lineSet.FirstApprover(); first != nil {
		return s.publishApprovalRequested(ctx, doc, template, first)
	}
	return nil
}

// completeDocument transitions the document to APPROVED, mints its
// number and publishes the completion event. An allocation failure
// aborts the whole transition: the document is never left APPROVED
// without a number.
func (s *workflowServiceImpl) completeDocument(ctx context.Context, doc *entity.Document, template *entity.Template) error {
	trigger := workflow.TriggerApprove
	if doc.Status == entity.DocStatusDraft {
		trigger = workflow.TriggerAutoApprove
	}
	if err := s.fire(ctx, doc, trigger); err != nil {
		return err
	}
	doc.Complete(time.Now())

	if doc.DocNo == "" {
		docNo, err := s.allocator.Allocate(ctx, s.periodKey())
		if err != nil {
			return err
		}
		doc.AssignDocNo(docNo)
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	evt := event.New(event.TypeDocumentCompleted, doc.ID, map[string]interface{}{
		event.KeyTemplateKey: templateKeyOf(template),
		event.KeyTitle:       doc.Title,
		event.KeyDetails:     doc.Details,
		event.KeyDrafterID:   doc.DrafterID,
	})
	return s.publisher.Publish(ctx, evt)
}

func (s *workflowServiceImpl) rejectLine(
	ctx context.Context,
	doc *entity.Document,
	line *entity.ApprovalLine,
	template *entity.Template,
	comment string,
	rejecterID int64,
) (*ApprovalResult, error) {
	line.RejectWithComment(comment, time.Now())
	if err := s.lineRepo.Update(ctx, line); err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}

	if err := s.fire(ctx, doc, workflow.TriggerReject); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	evt := event.New(event.TypeDocumentRejected, doc.ID, map[string]interface{}{
		event.KeyTemplateKey: templateKeyOf(template),
		event.KeyTitle:       doc.Title,
		event.KeyDrafterID:   doc.DrafterID,
		event.KeyComment:     comment,
		event.KeyRejecterID:  rejecterID,
	})
	if err := s.publisher.Publish(ctx, evt); err != nil {
		return nil, err
	}

	return &ApprovalResult{DocStatus: entity.DocStatusRejected}, nil
}

func (s *workflowServiceImpl) approveLine(
	ctx context.Context,
	doc *entity.Document,
	line *entity.ApprovalLine,
	template *entity.Template,
) (*ApprovalResult, error) {
	line.Approve(time.Now())
	if err := s.lineRepo.Update(ctx, line); err != nil {
		return nil, fmt.Errorf("update line: %w", err)
	}

	lines, err := s.lineRepo.GetByDocID(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	lineSet := workflow.NewLineSet(lines)

	if lineSet.AllApproved() {
		if err := s.completeDocument(ctx, doc, template); err != nil {
			return nil, err
		}
		return &ApprovalResult{DocStatus: entity.DocStatusApproved, DocNo: doc.DocNo}, nil
	}

	if next := lineSet.NextPending(); next != nil {
		if err := s.publishApprovalRequested(ctx, doc, template, next); err != nil {
			return nil, err
		}
	}

	return &ApprovalResult{DocStatus: entity.DocStatusInProgress}, nil
}

func (s *workflowServiceImpl) publishApprovalRequested(
	ctx context.Context,
	doc *entity.Document,
	template *entity.Template,
	line *entity.ApprovalLine,
) error {
	evt := event.New(event.TypeApprovalRequested, doc.ID, map[string]interface{}{
		event.KeyTemplateKey: templateKeyOf(template),
		event.KeyTitle:       doc.Title,
		event.KeyDrafterID:   doc.DrafterID,
		event.KeyDrafterName: s.directory.NameOf(ctx, doc.DrafterID),
		event.KeyApproverID:  line.ApproverID,
		event.KeySeq:         line.Seq,
	})
	return s.publisher.Publish(ctx, evt)
}

// --- persistence helpers ---

func (s *workflowServiceImpl) resolveTemplate(ctx context.Context, formType string) (*entity.Template, error) {
	template, err := s.templateRepo.GetByKey(ctx, formType)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	if template == nil {
		return nil, apperr.NotFound("template", formType)
	}
	return template, nil
}

func (s *workflowServiceImpl) loadDraftOwnedBy(ctx context.Context, docID, employeeID int64) (*entity.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, apperr.NotFound("document", docID)
	}
	if doc.Status != entity.DocStatusDraft {
		return nil, apperr.InvalidState("document is not a draft")
	}
	if doc.DrafterID != employeeID {
		return nil, apperr.LineAuthority("not the drafter of this document")
	}
	return doc, nil
}

// replaceDraftContent overwrites title/details and swaps out the line,
// reference and attachment sets entirely.
func (s *workflowServiceImpl) replaceDraftContent(ctx context.Context, doc *entity.Document, req DocumentRequest, files []FileUpload) error {
	doc.Title = req.Title
	doc.Details = req.Details
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if err := s.lineRepo.DeleteByDocID(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	if err := s.saveLines(ctx, doc.ID, req.Lines, doc.UpdatedAt); err != nil {
		return err
	}

	if err := s.refRepo.DeleteByDocID(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete references: %w", err)
	}
	if err := s.saveReferences(ctx, doc.ID, req.References); err != nil {
		return err
	}

	if err := s.deleteAttachments(ctx, doc.ID); err != nil {
		return err
	}
	return s.saveAttachments(ctx, doc, files)
}

// saveLines persists the line set. The drafter's seq=1 line is stored
// pre-approved with its process time equal to the document timestamp.
func (s *workflowServiceImpl) saveLines(ctx context.Context, docID int64, lines []LineInput, now time.Time) error {
	for _, in := range lines {
		line := &entity.ApprovalLine{
			DocID:      docID,
			ApproverID: in.ApproverID,
			Seq:        in.Seq,
			Status:     entity.LineStatusPending,
		}
		if in.Seq == entity.DrafterSeq {
			line.Status = entity.LineStatusApproved
			processed := now
			line.ProcessedAt = &processed
		}
		if err := s.lineRepo.Create(ctx, line); err != nil {
			return fmt.Errorf("create line: %w", err)
		}
	}
	return nil
}

func (s *workflowServiceImpl) saveReferences(ctx context.Context, docID int64, refs []ReferenceInput) error {
	for _, in := range refs {
		ref := &entity.Reference{DocID: docID, EmployeeID: in.EmployeeID}
		if err := s.refRepo.Create(ctx, ref); err != nil {
			return fmt.Errorf("create reference: %w", err)
		}
	}
	return nil
}

// saveAttachments uploads each file and records its metadata. A failed
// upload aborts the batch; blobs stored before the failure are removed
// best effort since the store lives outside the transaction.
func (s *workflowServiceImpl) saveAttachments(ctx context.Context, doc *entity.Document, files []FileUpload) error {
	var storedKeys []string
	for _, f := range files {
		key, err := s.store.Put(ctx, f.Content, attachmentDir, f.Name)
		if err != nil {
			s.cleanupStored(ctx, storedKeys)
			return apperr.Wrap(apperr.CodeFileUpload, fmt.Sprintf("upload %s", f.Name), err)
		}
		storedKeys = append(storedKeys, key)

		att := &entity.Attachment{
			DocID:      doc.ID,
			OriginName: f.Name,
			StorageKey: key,
			FileSize:   int64(len(f.Content)),
			CreatedAt:  time.Now(),
		}
		if err := s.attRepo.Create(ctx, att); err != nil {
			s.cleanupStored(ctx, storedKeys)
			return fmt.Errorf("create attachment: %w", err)
		}
	}
	return nil
}

func (s *workflowServiceImpl) cleanupStored(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Error("Failed to clean up stored attachment", "storage_key", key, "error", err)
		}
	}
}

// deleteAttachments removes the stored objects first, then the rows. A
// storage failure aborts the call so the attachment set never ends up
// half deleted.
func (s *workflowServiceImpl) deleteAttachments(ctx context.Context, docID int64) error {
	attachments, err := s.attRepo.GetByDocID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}

	for _, att := range attachments {
		if err := s.store.Delete(ctx, att.StorageKey); err != nil {
			return apperr.Wrap(apperr.CodeFileDelete, fmt.Sprintf("delete %s", att.StorageKey), err)
		}
	}

	if err := s.attRepo.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("delete attachment rows: %w", err)
	}
	return nil
}

func (s *workflowServiceImpl) periodKey() string {
	return fmt.Sprintf("%s-%s", s.docNoPrefix, time.Now().Format("2006"))
}

func validateAction(action ApprovalAction) error {
	if action.Action != entity.ActionApprove && action.Action != entity.ActionReject {
		return apperr.InvalidState(fmt.Sprintf("unsupported action %q", action.Action))
	}
	if action.Action == entity.ActionReject && strings.TrimSpace(action.Comment) == "" {
		return apperr.InvalidState("rejection requires a comment")
	}
	return nil
}

func templateKeyOf(template *entity.Template) string {
	if template == nil {
		return ""
	}
	return template.TemplateKey
}
