package service

import (
	"context"
	"fmt"
	"time"

	"github.com/c4hero/hero-approval/internal/application/dispatcher"
	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
)

// NotificationService consumes workflow events and records one
// notification per recipient. Recording is idempotent per event ID so
// outbox redelivery never duplicates a notification.
type NotificationService interface {
	// Register subscribes the service to the workflow event types.
	Register(d dispatcher.Dispatcher)

	HandleEvent(ctx context.Context, evt *event.Event) error

	ListForRecipient(ctx context.Context, recipientID int64, page, size int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

type notificationServiceImpl struct {
	notifRepo port.NotificationRepository
	refRepo   port.ReferenceRepository
	directory port.DirectoryLookup
	logger    Logger
}

// NewNotificationService creates the notification recorder.
func NewNotificationService(
	notifRepo port.NotificationRepository,
	refRepo port.ReferenceRepository,
	directory port.DirectoryLookup,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifRepo: notifRepo,
		refRepo:   refRepo,
		directory: directory,
		logger:    logger,
	}
}

// Register subscribes the service to every workflow event type.
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeDocumentCompleted,
		event.TypeDocumentRejected,
		event.TypeApprovalRequested,
		event.TypeDocumentRecalled,
		event.TypeApprovalReminder,
	} {
		d.Subscribe(t, "notification-recorder", s.HandleEvent)
	}
}

// HandleEvent fans the event out to its recipients.
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	recipients, message := s.resolve(ctx, evt)

	for _, recipientID := range recipients {
		if recipientID == 0 {
			continue
		}
		if err := s.record(ctx, evt, recipientID, message); err != nil {
			return err
		}
	}
	return nil
}

// resolve decides who hears about the event and what the message says.
// Completion also informs the document's references; everything else
// targets a single party.
func (s *notificationServiceImpl) resolve(ctx context.Context, evt *event.Event) ([]int64, string) {
	title := evt.PayloadString(event.KeyTitle)
	drafterID := evt.PayloadInt(event.KeyDrafterID)

	switch evt.Type {
	case event.TypeDocumentCompleted:
		recipients := []int64{drafterID}
		refs, err := s.refRepo.GetByDocID(ctx, evt.DocID)
		if err != nil {
			s.logger.Error("Failed to load references for completion notice", "doc_id", evt.DocID, "error", err)
		}
		for _, r := range refs {
			recipients = append(recipients, r.EmployeeID)
		}
		return recipients, fmt.Sprintf("Document %q has been fully approved.", title)

	case event.TypeDocumentRejected:
		comment := evt.PayloadString(event.KeyComment)
		return []int64{drafterID}, fmt.Sprintf("Document %q was rejected: %s", title, comment)

	case event.TypeApprovalRequested:
		drafterName := evt.PayloadString(event.KeyDrafterName)
		return []int64{evt.PayloadInt(event.KeyApproverID)},
			fmt.Sprintf("Approval request from %s for document %q.", drafterName, title)

	case event.TypeDocumentRecalled:
		return []int64{drafterID}, fmt.Sprintf("Document %q has been recalled to draft.", title)

	case event.TypeApprovalReminder:
		waitingDays := evt.PayloadInt(event.KeyWaitingDays)
		return []int64{evt.PayloadInt(event.KeyApproverID)},
			fmt.Sprintf("Document %q has been waiting for your approval for %d days.", title, waitingDays)
	}

	return nil, ""
}

// ListForRecipient returns the recipient's notifications newest first.
func (s *notificationServiceImpl) ListForRecipient(ctx context.Context, recipientID int64, page, size int) ([]*entity.Notification, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return s.notifRepo.ListByRecipient(ctx, recipientID, size, (page-1)*size)
}

// MarkRead marks one notification as read.
func (s *notificationServiceImpl) MarkRead(ctx context.Context, id int64) error {
	return s.notifRepo.MarkRead(ctx, id)
}

func (s *notificationServiceImpl) record(ctx context.Context, evt *event.Event, recipientID int64, message string) error {
	exists, err := s.notifRepo.ExistsForEvent(ctx, evt.ID, recipientID)
	if err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if exists {
		return nil
	}

	n := &entity.Notification{
		EventID:     evt.ID,
		DocID:       evt.DocID,
		RecipientID: recipientID,
		EventType:   evt.Type.String(),
		Message:     message,
		CreatedAt:   time.Now(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	s.logger.Info("Notification recorded",
		"event_type", evt.Type,
		"doc_id", evt.DocID,
		"recipient_id", recipientID,
	)
	return nil
}
