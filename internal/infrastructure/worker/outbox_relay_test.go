package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/c4hero/hero-approval/internal/application/dispatcher"
	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
)

type fakeOutboxRepo struct {
	mu      sync.Mutex
	records []*entity.OutboxRecord
	getErr  error
	markErr error
}

func (r *fakeOutboxRepo) Create(ctx context.Context, rec *entity.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = int64(len(r.records) + 1)
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*entity.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	var pending []*entity.OutboxRecord
	for _, rec := range r.records {
		if rec.DispatchedAt == nil {
			pending = append(pending, rec)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *fakeOutboxRepo) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	for _, rec := range r.records {
		if rec.ID == id {
			rec.DispatchedAt = &at
		}
	}
	return nil
}

func (r *fakeOutboxRepo) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.DispatchedAt == nil {
			n++
		}
	}
	return n
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []*event.Event
	failOn     string
}

func (d *fakeDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {}

func (d *fakeDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn != "" && evt.ID == d.failOn {
		return errors.New("handler failure")
	}
	d.dispatched = append(d.dispatched, evt)
	return nil
}

func (d *fakeDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func seedRecord(t *testing.T, repo *fakeOutboxRepo, evt *event.Event) *entity.OutboxRecord {
	t.Helper()
	payload, err := json.Marshal(evt.Payload)
	require.NoError(t, err)
	rec := &entity.OutboxRecord{
		EventID:   evt.ID,
		EventType: evt.Type.String(),
		DocID:     evt.DocID,
		Payload:   string(payload),
		CreatedAt: evt.Timestamp,
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

func newTestRelay(repo *fakeOutboxRepo, d dispatcher.Dispatcher) *OutboxRelay {
	return NewOutboxRelay(DefaultOutboxRelayConfig(), repo, d, zap.NewNop())
}

func TestRelayPending_DeliversInOrderAndMarksDispatched(t *testing.T) {
	repo := &fakeOutboxRepo{}
	first := event.New(event.TypeApprovalRequested, 1, map[string]interface{}{event.KeySeq: 2})
	second := event.New(event.TypeDocumentCompleted, 1, nil)
	seedRecord(t, repo, first)
	seedRecord(t, repo, second)

	d := &fakeDispatcher{}
	relay := newTestRelay(repo, d)

	require.NoError(t, relay.relayPending())

	require.Len(t, d.dispatched, 2)
	assert.Equal(t, first.ID, d.dispatched[0].ID)
	assert.Equal(t, second.ID, d.dispatched[1].ID)
	assert.Equal(t, 0, repo.pendingCount())
}

func TestRelayPending_FailedDispatchStopsBatch(t *testing.T) {
	repo := &fakeOutboxRepo{}
	first := event.New(event.TypeApprovalRequested, 1, nil)
	second := event.New(event.TypeDocumentCompleted, 1, nil)
	seedRecord(t, repo, first)
	seedRecord(t, repo, second)

	d := &fakeDispatcher{failOn: first.ID}
	relay := newTestRelay(repo, d)

	err := relay.relayPending()
	require.Error(t, err)

	// Neither record may be marked: the failed one retries and the one
	// behind it waits so delivery stays in insertion order.
	assert.Empty(t, d.dispatched)
	assert.Equal(t, 2, repo.pendingCount())
}

func TestRelayPending_RetryRedeliversSameEvent(t *testing.T) {
	repo := &fakeOutboxRepo{}
	evt := event.New(event.TypeDocumentRejected, 3, map[string]interface{}{event.KeyComment: "over budget"})
	seedRecord(t, repo, evt)

	d := &fakeDispatcher{failOn: evt.ID}
	relay := newTestRelay(repo, d)
	require.Error(t, relay.relayPending())

	d.mu.Lock()
	d.failOn = ""
	d.mu.Unlock()
	require.NoError(t, relay.relayPending())

	require.Len(t, d.dispatched, 1)
	assert.Equal(t, evt.ID, d.dispatched[0].ID)
	assert.Equal(t, "over budget", d.dispatched[0].PayloadString(event.KeyComment))
	assert.Equal(t, 0, repo.pendingCount())
}

func TestRelayPending_SkipsUndecodableRecord(t *testing.T) {
	repo := &fakeOutboxRepo{}
	require.NoError(t, repo.Create(context.Background(), &entity.OutboxRecord{
		EventID:   "broken",
		EventType: "document.completed",
		Payload:   "{not json",
		CreatedAt: time.Now(),
	}))
	good := event.New(event.TypeDocumentCompleted, 5, nil)
	seedRecord(t, repo, good)

	d := &fakeDispatcher{}
	relay := newTestRelay(repo, d)

	require.NoError(t, relay.relayPending())

	// The broken row is marked dispatched without delivery so it cannot
	// wedge the relay; the good row behind it still goes out.
	require.Len(t, d.dispatched, 1)
	assert.Equal(t, good.ID, d.dispatched[0].ID)
	assert.Equal(t, 0, repo.pendingCount())
}

func TestRelayPending_GetPendingFailure(t *testing.T) {
	repo := &fakeOutboxRepo{getErr: errors.New("db closed")}
	relay := newTestRelay(repo, &fakeDispatcher{})

	require.Error(t, relay.relayPending())
}

func TestOutboxRelay_StartStop(t *testing.T) {
	relay := newTestRelay(&fakeOutboxRepo{}, &fakeDispatcher{})

	require.NoError(t, relay.Start(context.Background()))
	assert.Error(t, relay.Start(context.Background()), "second start must be rejected")

	require.NoError(t, relay.Stop())
	assert.NoError(t, relay.Stop(), "stop is idempotent")
}
