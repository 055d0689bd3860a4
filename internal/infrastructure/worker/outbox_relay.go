package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c4hero/hero-approval/internal/application/dispatcher"
	"github.com/c4hero/hero-approval/internal/application/outbox"
	"github.com/c4hero/hero-approval/internal/application/port"
	"go.uber.org/zap"
)

// OutboxRelayConfig holds configuration for the outbox relay worker
type OutboxRelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultOutboxRelayConfig returns default configuration
func DefaultOutboxRelayConfig() OutboxRelayConfig {
	return OutboxRelayConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	}
}

// OutboxRelay polls the outbox table and delivers committed events to
// the dispatcher. Delivery is at least once: a record is marked
// dispatched only after every handler succeeded, so a crash between
// dispatch and mark causes a redelivery that handlers absorb via the
// event ID.
type OutboxRelay struct {
	config     OutboxRelayConfig
	outboxRepo port.OutboxRepository
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	isRunning     bool
	relayedCount  int
	failedCount   int
	lastProcessed time.Time
}

// NewOutboxRelay creates a new outbox relay worker
func NewOutboxRelay(
	config OutboxRelayConfig,
	outboxRepo port.OutboxRepository,
	d dispatcher.Dispatcher,
	logger *zap.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		config:     config,
		outboxRepo: outboxRepo,
		dispatcher: d,
		logger:     logger,
	}
}

// Start begins the relay polling loop
func (w *OutboxRelay) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("OutboxRelay started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *OutboxRelay) Stop() error {
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

	w.logger.Info("OutboxRelay stopped",
		zap.Int("relayed_count", w.relayedCount),
		zap.Int("failed_count", w.failedCount))

	return nil
}

// Name returns the worker name for identification
func (w *OutboxRelay) Name() string {
	return "OutboxRelay"
}

func (w *OutboxRelay) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Relay poll loop context cancelled")
			return

		case <-ticker.C:
			if err := w.relayPending(); err != nil {
				w.logger.Error("Failed to relay pending events", zap.Error(err))
			}

			w.mu.Lock()
			w.lastProcessed = time.Now()
			w.mu.Unlock()
		}
	}
}

// relayPending delivers one batch of undispatched records in insertion
// order. A failed record stops the batch so ordering is preserved on
// retry.
func (w *OutboxRelay) relayPending() error {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := w.outboxRepo.GetPending(ctx, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("get pending outbox records: %w", err)
	}

	for _, rec := range records {
		evt, err := outbox.Decode(rec)
		if err != nil {
			// Undecodable rows would wedge the relay forever, so mark
			// them dispatched and move on.
			w.logger.Error("Skipping undecodable outbox record",
				zap.Int64("record_id", rec.ID),
				zap.Error(err))
			if markErr := w.outboxRepo.MarkDispatched(ctx, rec.ID, time.Now()); markErr != nil {
				return markErr
			}
			continue
		}

		if err := w.dispatcher.Dispatch(ctx, evt); err != nil {
			w.mu.Lock()
			w.failedCount++
			w.mu.Unlock()
			w.logger.Error("Event dispatch failed, will retry",
				zap.String("event_id", evt.ID),
				zap.String("event_type", evt.Type.String()),
				zap.Error(err))
			return err
		}

		if err := w.outboxRepo.MarkDispatched(ctx, rec.ID, time.Now()); err != nil {
			return fmt.Errorf("mark record %d dispatched: %w", rec.ID, err)
		}

		w.mu.Lock()
		w.relayedCount++
		w.mu.Unlock()

		w.logger.Debug("Event relayed",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.Int64("doc_id", evt.DocID))
	}

	return nil
}
