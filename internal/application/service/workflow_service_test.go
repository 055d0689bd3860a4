package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c4hero/hero-approval/internal/apperr"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
)

type workflowFixture struct {
	docRepo   *mockDocumentRepo
	lineRepo  *mockLineRepo
	refRepo   *mockReferenceRepo
	attRepo   *mockAttachmentRepo
	seqRepo   *mockSequenceRepo
	store     *mockStore
	publisher *mockPublisher
	svc       WorkflowService
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		docRepo:   newMockDocumentRepo(),
		lineRepo:  newMockLineRepo(),
		refRepo:   newMockReferenceRepo(),
		attRepo:   newMockAttachmentRepo(),
		seqRepo:   newMockSequenceRepo(),
		store:     newMockStore(),
		publisher: &mockPublisher{},
	}

	templateRepo := newMockTemplateRepo(
		&entity.Template{ID: 1, TemplateKey: "VACATION", Name: "Vacation Request"},
	)
	directory := &mockDirectory{names: map[int64]string{10: "Alice", 20: "Bob", 30: "Carol"}}

	f.svc = NewWorkflowService(
		f.docRepo, f.lineRepo, f.refRepo, f.attRepo, templateRepo,
		NewSequenceAllocator(f.seqRepo, nopLogger{}),
		f.store, f.publisher, directory, &mockTxManager{},
		"HERO", nopLogger{},
	)
	return f
}

func expectedDocNo(n int) string {
	return fmt.Sprintf("HERO-%s-%05d", time.Now().Format("2006"), n)
}

func vacationRequest(lines ...LineInput) DocumentRequest {
	return DocumentRequest{
		FormType: "VACATION",
		Title:    "Summer vacation",
		Details:  "Two weeks off",
		Lines:    lines,
	}
}

func TestCreateDocument_Draft(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusDraft)
	require.NoError(t, err)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocStatusDraft, doc.Status)
	assert.Empty(t, doc.DocNo)

	lines, err := f.lineRepo.GetByDocID(ctx, docID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		if line.Seq == entity.DrafterSeq {
			assert.Equal(t, entity.LineStatusApproved, line.Status, "drafter line is pre-approved")
			assert.NotNil(t, line.ProcessedAt)
		} else {
			assert.Equal(t, entity.LineStatusPending, line.Status)
		}
	}

	assert.Empty(t, f.publisher.events, "draft creation publishes nothing")
}

func TestCreateDocument_DirectSubmit_OnlyDrafterAutoCompletes(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusApproved, doc.Status)
	assert.Equal(t, expectedDocNo(1), doc.DocNo)
	assert.NotNil(t, doc.CompletedAt)

	completed := f.publisher.byType(event.TypeDocumentCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, docID, completed[0].DocID)
	assert.Equal(t, int64(10), completed[0].PayloadInt(event.KeyDrafterID))
}

func TestCreateDocument_DirectSubmit_NotifiesFirstApprover(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
		LineInput{ApproverID: 30, Seq: 3},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusInProgress, doc.Status)
	assert.Empty(t, doc.DocNo, "no number before completion")

	requested := f.publisher.byType(event.TypeApprovalRequested)
	require.Len(t, requested, 1, "only the seq=2 approver is notified")
	assert.Equal(t, int64(20), requested[0].PayloadInt(event.KeyApproverID))
	assert.Equal(t, "Alice", requested[0].PayloadString(event.KeyDrafterName))
}

func TestCreateDocument_RejectsUnknownStatus(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.svc.CreateDocument(context.Background(), 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil, entity.DocStatusApproved)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestCreateDocument_UnknownTemplate(t *testing.T) {
	f := newWorkflowFixture()

	req := vacationRequest(LineInput{ApproverID: 10, Seq: 1})
	req.FormType = "NO_SUCH_FORM"

	_, err := f.svc.CreateDocument(context.Background(), 10, req, nil, entity.DocStatusDraft)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestSubmitDraftDocument_AutoCompletesOnlyDrafter(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil, entity.DocStatusDraft)
	require.NoError(t, err)

	_, err = f.svc.SubmitDraftDocument(ctx, 10, docID, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil)
	require.NoError(t, err)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusApproved, doc.Status)
	assert.Equal(t, expectedDocNo(1), doc.DocNo)
}

func TestSubmitDraftDocument_ReplacesLines(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusDraft)
	require.NoError(t, err)

	// Submission swaps the approver on seq=2
	_, err = f.svc.SubmitDraftDocument(ctx, 10, docID, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 30, Seq: 2},
	), nil)
	require.NoError(t, err)

	lines, err := f.lineRepo.GetByDocID(ctx, docID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		if line.Seq == 2 {
			assert.Equal(t, int64(30), line.ApproverID)
		}
	}

	requested := f.publisher.byType(event.TypeApprovalRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, int64(30), requested[0].PayloadInt(event.KeyApproverID))
}

func TestSubmitDraftDocument_GuardsOwnerAndState(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	// Not the drafter
	_, err = f.svc.UpdateDraftDocument(ctx, 20, docID, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState), "in-progress document is not editable")

	// Missing document
	_, err = f.svc.SubmitDraftDocument(ctx, 10, 9999, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestUpdateDraftDocument_RequiresDrafter(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil, entity.DocStatusDraft)
	require.NoError(t, err)

	_, err = f.svc.UpdateDraftDocument(ctx, 20, docID, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeLineAuthority))
}

func TestProcessApproval_AdvancesToNextApprover(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
		LineInput{ApproverID: 30, Seq: 3},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	line := findLine(t, f, docID, 2)
	result, err := f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID: line.ID,
		Action: entity.ActionApprove,
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusInProgress, result.DocStatus)
	assert.Empty(t, result.DocNo)

	requested := f.publisher.byType(event.TypeApprovalRequested)
	require.Len(t, requested, 2, "creation notified seq=2, approval notified seq=3")
	assert.Equal(t, int64(30), requested[1].PayloadInt(event.KeyApproverID))
}

func TestProcessApproval_LastApprovalCompletes(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	line := findLine(t, f, docID, 2)
	result, err := f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID: line.ID,
		Action: entity.ActionApprove,
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusApproved, result.DocStatus)
	assert.Equal(t, expectedDocNo(1), result.DocNo)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusApproved, doc.Status)
	assert.Equal(t, expectedDocNo(1), doc.DocNo)
	assert.NotNil(t, doc.CompletedAt)

	require.Len(t, f.publisher.byType(event.TypeDocumentCompleted), 1)
}

func TestProcessApproval_SequenceFailureAbortsCompletion(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	f.seqRepo.err = fmt.Errorf("counter row locked")

	line := findLine(t, f, docID, 2)
	_, err = f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID: line.ID,
		Action: entity.ActionApprove,
	}, 20)
	assert.True(t, apperr.HasCode(err, apperr.CodeSequenceGeneration), "got %v", err)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, doc.DocNo, "a failed allocation must not assign a number")
	assert.Empty(t, f.publisher.byType(event.TypeDocumentCompleted), "no completion event without a number")
}

func TestProcessApproval_RejectionIsFinal(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
		LineInput{ApproverID: 30, Seq: 3},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	line := findLine(t, f, docID, 2)
	result, err := f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID:  line.ID,
		Action:  entity.ActionReject,
		Comment: "Budget exceeded",
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusRejected, result.DocStatus)

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusRejected, doc.Status)
	assert.Empty(t, doc.DocNo, "rejected documents never get a number")

	// Later lines stay pending, untouched by the rejection
	later := findLine(t, f, docID, 3)
	assert.Equal(t, entity.LineStatusPending, later.Status)

	rejected := f.publisher.byType(event.TypeDocumentRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, "Budget exceeded", rejected[0].PayloadString(event.KeyComment))
	assert.Equal(t, int64(20), rejected[0].PayloadInt(event.KeyRejecterID))
}

func TestProcessApproval_RejectedDocumentBlocksRemainingLines(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
		LineInput{ApproverID: 30, Seq: 3},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	line := findLine(t, f, docID, 2)
	_, err = f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID:  line.ID,
		Action:  entity.ActionReject,
		Comment: "Budget exceeded",
	}, 20)
	require.NoError(t, err)

	// The seq=3 line is still PENDING, but the document is terminal
	later := findLine(t, f, docID, 3)
	require.Equal(t, entity.LineStatusPending, later.Status)

	_, err = f.svc.ProcessApproval(ctx, ApprovalAction{
		LineID: later.ID,
		Action: entity.ActionApprove,
	}, 30)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState), "got %v", err)
}

func TestProcessApproval_Guards(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)
	line := findLine(t, f, docID, 2)

	tests := []struct {
		name       string
		action     ApprovalAction
		employeeID int64
		wantCode   apperr.Code
	}{
		{
			name:       "unknown action",
			action:     ApprovalAction{LineID: line.ID, Action: "DEFER"},
			employeeID: 20,
			wantCode:   apperr.CodeInvalidState,
		},
		{
			name:       "rejection without comment",
			action:     ApprovalAction{LineID: line.ID, Action: entity.ActionReject},
			employeeID: 20,
			wantCode:   apperr.CodeInvalidState,
		},
		{
			name:       "wrong approver",
			action:     ApprovalAction{LineID: line.ID, Action: entity.ActionApprove},
			employeeID: 30,
			wantCode:   apperr.CodeLineAuthority,
		},
		{
			name:       "missing line",
			action:     ApprovalAction{LineID: 9999, Action: entity.ActionApprove},
			employeeID: 20,
			wantCode:   apperr.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessApproval(ctx, tt.action, tt.employeeID)
			assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestProcessApproval_AlreadyProcessedLine(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	line := findLine(t, f, docID, 2)
	_, err = f.svc.ProcessApproval(ctx, ApprovalAction{LineID: line.ID, Action: entity.ActionApprove}, 20)
	require.NoError(t, err)

	_, err = f.svc.ProcessApproval(ctx, ApprovalAction{LineID: line.ID, Action: entity.ActionApprove}, 20)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestCancelDocument_RecallsToDraft(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelDocument(ctx, docID))

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocStatusDraft, doc.Status)

	require.Len(t, f.publisher.byType(event.TypeDocumentRecalled), 1)
}

func TestCancelDocument_OnlyInProgress(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), nil, entity.DocStatusDraft)
	require.NoError(t, err)

	err = f.svc.CancelDocument(ctx, docID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestDeleteDocument_RemovesEverything(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), []FileUpload{
		{Name: "plan.pdf", Content: []byte("pdf-bytes")},
	}, entity.DocStatusDraft)
	require.NoError(t, err)
	require.Len(t, f.store.objects, 1)

	require.NoError(t, f.svc.DeleteDocument(ctx, docID))

	doc, err := f.docRepo.GetByID(ctx, docID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	lines, err := f.lineRepo.GetByDocID(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Empty(t, f.store.objects, "stored blobs are removed with the draft")
}

func TestDeleteDocument_OnlyDrafts(t *testing.T) {
	f := newWorkflowFixture()
	ctx := context.Background()

	docID, err := f.svc.CreateDocument(ctx, 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
		LineInput{ApproverID: 20, Seq: 2},
	), nil, entity.DocStatusInProgress)
	require.NoError(t, err)

	err = f.svc.DeleteDocument(ctx, docID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestCreateDocument_UploadFailureAborts(t *testing.T) {
	f := newWorkflowFixture()
	f.store.putErr = fmt.Errorf("disk full")

	_, err := f.svc.CreateDocument(context.Background(), 10, vacationRequest(
		LineInput{ApproverID: 10, Seq: 1},
	), []FileUpload{
		{Name: "plan.pdf", Content: []byte("pdf-bytes")},
	}, entity.DocStatusDraft)
	assert.True(t, apperr.HasCode(err, apperr.CodeFileUpload))
	assert.Empty(t, f.store.objects)
}

func findLine(t *testing.T, f *workflowFixture, docID int64, seq int) *entity.ApprovalLine {
	t.Helper()
	lines, err := f.lineRepo.GetByDocID(context.Background(), docID)
	require.NoError(t, err)
	for _, line := range lines {
		if line.Seq == seq {
			return line
		}
	}
	t.Fatalf("no line with seq %d on document %d", seq, docID)
	return nil
}
