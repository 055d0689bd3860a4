package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c4hero/hero-approval/internal/application/port"
	"github.com/c4hero/hero-approval/internal/domain/event"
	"go.uber.org/zap"
)

// ReminderConfig holds configuration for the reminder worker
type ReminderConfig struct {
	// SweepInterval is how often overdue lines are scanned for.
	SweepInterval time.Duration

	// WaitThreshold is how long a line may sit pending before a
	// reminder is emitted.
	WaitThreshold time.Duration

	BatchSize int
}

// DefaultReminderConfig returns default configuration
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		SweepInterval: 24 * time.Hour,
		WaitThreshold: 3 * 24 * time.Hour,
		BatchSize:     100,
	}
}

// Reminder periodically nudges approvers sitting on an active pending
// line. Each sweep emits one reminder event per overdue line through
// the outbox, so delivery shares the relay's guarantees.
type Reminder struct {
	config    ReminderConfig
	lineRepo  port.LineRepository
	docRepo   port.DocumentRepository
	publisher port.EventPublisher
	txManager port.TransactionManager
	logger    *zap.Logger

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	isRunning     bool
	remindedTotal int
}

// NewReminder creates a new reminder worker
func NewReminder(
	config ReminderConfig,
	lineRepo port.LineRepository,
	docRepo port.DocumentRepository,
	publisher port.EventPublisher,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Reminder {
	return &Reminder{
		config:    config,
		lineRepo:  lineRepo,
		docRepo:   docRepo,
		publisher: publisher,
		txManager: txManager,
		logger:    logger,
	}
}

// Start begins the sweep loop
func (w *Reminder) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("reminder worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("Reminder worker started",
		zap.Duration("sweep_interval", w.config.SweepInterval),
		zap.Duration("wait_threshold", w.config.WaitThreshold))

	go w.sweepLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *Reminder) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("Reminder worker stopped",
		zap.Int("reminded_total", w.remindedTotal))

	return nil
}

// Name returns the worker name for identification
func (w *Reminder) Name() string {
	return "ApprovalReminder"
}

func (w *Reminder) sweepLoop() {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Reminder sweep loop context cancelled")
			return

		case <-ticker.C:
			if err := w.sweep(); err != nil {
				w.logger.Error("Reminder sweep failed", zap.Error(err))
			}
		}
	}
}

func (w *Reminder) sweep() error {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := time.Now().Add(-w.config.WaitThreshold)
	lines, err := w.lineRepo.ListPendingOlderThan(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("list overdue lines: %w", err)
	}

	for _, line := range lines {
		doc, err := w.docRepo.GetByID(ctx, line.DocID)
		if err != nil {
			w.logger.Error("Failed to load document for reminder",
				zap.Int64("doc_id", line.DocID),
				zap.Error(err))
			continue
		}
		if doc == nil {
			continue
		}

		waitingDays := int(time.Since(doc.UpdatedAt).Hours() / 24)

		evt := event.New(event.TypeApprovalReminder, doc.ID, map[string]interface{}{
			event.KeyTitle:       doc.Title,
			event.KeyApproverID:  line.ApproverID,
			event.KeySeq:         line.Seq,
			event.KeyWaitingDays: waitingDays,
		})

		err = w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return w.publisher.Publish(txCtx, evt)
		})
		if err != nil {
			w.logger.Error("Failed to publish reminder",
				zap.Int64("doc_id", doc.ID),
				zap.Int64("approver_id", line.ApproverID),
				zap.Error(err))
			continue
		}

		w.mu.Lock()
		w.remindedTotal++
		w.mu.Unlock()

		w.logger.Info("Reminder emitted",
			zap.Int64("doc_id", doc.ID),
			zap.Int64("approver_id", line.ApproverID),
			zap.Int("waiting_days", waitingDays))
	}

	return nil
}
