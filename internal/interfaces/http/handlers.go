package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"github.com/c4hero/hero-approval/internal/apperr"
	"github.com/c4hero/hero-approval/internal/application/service"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/infrastructure/storage"
)

// headerEmployeeID carries the caller's identity. Authentication sits
// in front of this service.
const headerEmployeeID = "X-Employee-Id"

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflowService     service.WorkflowService
	queryService        service.QueryService
	notificationService service.NotificationService
	attachmentStore     *storage.LocalAttachmentStore
	logger              Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	workflowService service.WorkflowService,
	queryService service.QueryService,
	notificationService service.NotificationService,
	attachmentStore *storage.LocalAttachmentStore,
	logger Logger,
) *Handlers {
	return &Handlers{
		workflowService:     workflowService,
		queryService:        queryService,
		notificationService: notificationService,
		attachmentStore:     attachmentStore,
		logger:              logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// LineRequest is one approval step in a document request
type LineRequest struct {
	ApproverID int64 `json:"approver_id"`
	Seq        int   `json:"seq"`
}

// ReferenceRequest names one employee to inform on completion
type ReferenceRequest struct {
	EmployeeID int64 `json:"employee_id"`
}

// DocumentRequest is the body of create/update/submit calls. Create
// accepts an initial status of DRAFT or INPROGRESS; update and submit
// ignore the field.
type DocumentRequest struct {
	FormType   string             `json:"form_type"`
	Title      string             `json:"title"`
	Details    string             `json:"details"`
	Status     string             `json:"status"`
	Lines      []LineRequest      `json:"lines"`
	References []ReferenceRequest `json:"references"`
}

// Validate checks the request body
func (r DocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FormType, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Status, validation.In("", entity.DocStatusDraft, entity.DocStatusInProgress)),
		validation.Field(&r.Lines, validation.Required),
	)
}

// ActionRequest is one approver decision
type ActionRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// Validate checks the action body. The comment requirement for
// rejections is enforced by the workflow service, which owns the rule.
func (r ActionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.In(entity.ActionApprove, entity.ActionReject)),
	)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateDocument handles POST /api/approval/documents
func (h *Handlers) CreateDocument(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}

	req, files, ok := h.bindDocumentRequest(c)
	if !ok {
		return
	}

	status := req.Status
	if status == "" {
		status = entity.DocStatusDraft
	}

	docID, err := h.workflowService.CreateDocument(c.Request.Context(), employeeID, toServiceRequest(req), files, status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    gin.H{"doc_id": docID},
	})
}

// UpdateDocument handles PUT /api/approval/documents/:docId
func (h *Handlers) UpdateDocument(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}
	docID, ok := h.pathID(c, "docId")
	if !ok {
		return
	}

	req, files, ok := h.bindDocumentRequest(c)
	if !ok {
		return
	}

	id, err := h.workflowService.UpdateDraftDocument(c.Request.Context(), employeeID, docID, toServiceRequest(req), files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"doc_id": id},
	})
}

// SubmitDocument handles POST /api/approval/documents/:docId/submit
func (h *Handlers) SubmitDocument(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}
	docID, ok := h.pathID(c, "docId")
	if !ok {
		return
	}

	req, files, ok := h.bindDocumentRequest(c)
	if !ok {
		return
	}

	id, err := h.workflowService.SubmitDraftDocument(c.Request.Context(), employeeID, docID, toServiceRequest(req), files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"doc_id": id},
	})
}

// ProcessApproval handles POST /api/approval/lines/:lineId/action
func (h *Handlers) ProcessApproval(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineId")
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	result, err := h.workflowService.ProcessApproval(c.Request.Context(), service.ApprovalAction{
		LineID:  lineID,
		Action:  req.Action,
		Comment: req.Comment,
	}, employeeID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// RecallDocument handles POST /api/approval/documents/:docId/recall
func (h *Handlers) RecallDocument(c *gin.Context) {
	docID, ok := h.pathID(c, "docId")
	if !ok {
		return
	}

	if err := h.workflowService.CancelDocument(c.Request.Context(), docID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// DeleteDocument handles DELETE /api/approval/documents/:docId
func (h *Handlers) DeleteDocument(c *gin.Context) {
	docID, ok := h.pathID(c, "docId")
	if !ok {
		return
	}

	if err := h.workflowService.DeleteDocument(c.Request.Context(), docID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetDocument handles GET /api/approval/documents/:docId
func (h *Handlers) GetDocument(c *gin.Context) {
	docID, ok := h.pathID(c, "docId")
	if !ok {
		return
	}

	detail, err := h.queryService.GetDocumentDetail(c.Request.Context(), docID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    detail,
	})
}

// ListInbox handles GET /api/approval/documents
func (h *Handlers) ListInbox(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}

	tab := c.DefaultQuery("tab", "all")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	inbox, err := h.queryService.ListInbox(c.Request.Context(), employeeID, tab, page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    inbox,
	})
}

// ListTemplates handles GET /api/approval/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}

	templates, err := h.queryService.ListTemplates(c.Request.Context(), employeeID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    templates,
	})
}

// ToggleBookmark handles POST /api/approval/templates/:templateId/bookmark
func (h *Handlers) ToggleBookmark(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}
	templateID, ok := h.pathID(c, "templateId")
	if !ok {
		return
	}

	bookmarked, err := h.queryService.ToggleBookmark(c.Request.Context(), employeeID, templateID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"bookmarked": bookmarked},
	})
}

// ListNotifications handles GET /api/approval/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	employeeID, ok := h.employeeID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	notifications, err := h.notificationService.ListForRecipient(c.Request.Context(), employeeID, page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    notifications,
	})
}

// MarkNotificationRead handles POST /api/approval/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// DownloadAttachment handles GET /files/*key with presigned query
// params issued by the attachment store.
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		h.badRequest(c, "invalid expires parameter")
		return
	}
	signature := c.Query("signature")

	if !h.attachmentStore.Verify(key, expires, signature) {
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   "invalid or expired download link",
		})
		return
	}

	content, err := h.attachmentStore.Open(key)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "file not found",
		})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", content)
}

// employeeID extracts the caller identity header, rejecting the
// request when it is missing or malformed.
func (h *Handlers) employeeID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(headerEmployeeID)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + headerEmployeeID + " header",
		})
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "invalid " + headerEmployeeID + " header",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// bindDocumentRequest reads a document request from either a plain
// JSON body or a multipart form with a "payload" field and "files"
// parts carrying attachments.
func (h *Handlers) bindDocumentRequest(c *gin.Context) (DocumentRequest, []service.FileUpload, bool) {
	var req DocumentRequest
	var files []service.FileUpload

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			h.badRequest(c, "invalid multipart form")
			return req, nil, false
		}

		payloads := form.Value["payload"]
		if len(payloads) != 1 {
			h.badRequest(c, "multipart form requires exactly one payload field")
			return req, nil, false
		}
		if err := json.Unmarshal([]byte(payloads[0]), &req); err != nil {
			h.badRequest(c, "invalid payload JSON")
			return req, nil, false
		}

		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				h.badRequest(c, "unreadable file part")
				return req, nil, false
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				h.badRequest(c, "unreadable file part")
				return req, nil, false
			}
			files = append(files, service.FileUpload{
				Name:    fh.Filename,
				Content: content,
			})
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body")
			return req, nil, false
		}
	}

	if err := req.Validate(); err != nil {
		h.badRequest(c, err.Error())
		return req, nil, false
	}

	return req, files, true
}

func toServiceRequest(req DocumentRequest) service.DocumentRequest {
	out := service.DocumentRequest{
		FormType: req.FormType,
		Title:    req.Title,
		Details:  req.Details,
	}
	for _, l := range req.Lines {
		out.Lines = append(out.Lines, service.LineInput{
			ApproverID: l.ApproverID,
			Seq:        l.Seq,
		})
	}
	for _, r := range req.References {
		out.References = append(out.References, service.ReferenceInput{
			EmployeeID: r.EmployeeID,
		})
	}
	return out
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// respondError maps application error codes to HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	code, ok := apperr.CodeOf(err)
	if ok {
		switch code {
		case apperr.CodeNotFound:
			status = http.StatusNotFound
		case apperr.CodeInvalidState:
			status = http.StatusConflict
		case apperr.CodeLineAuthority:
			status = http.StatusForbidden
		case apperr.CodeSequenceGeneration:
			status = http.StatusInternalServerError
		case apperr.CodeFileUpload, apperr.CodeFileDelete:
			status = http.StatusBadGateway
		}
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
		Code:    string(code),
	})
}
