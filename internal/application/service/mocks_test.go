package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c4hero/hero-approval/internal/domain/entity"
	"github.com/c4hero/hero-approval/internal/domain/event"
)

// In-memory test doubles for the persistence and storage ports.

type mockDocumentRepo struct {
	mu     sync.Mutex
	docs   map[int64]*entity.Document
	nextID int64
	err    error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[int64]*entity.Document), nextID: 1}
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	doc.ID = m.nextID
	m.nextID++
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (m *mockDocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentRepo) ListInbox(ctx context.Context, employeeID int64, tab string, limit, offset int) ([]*entity.Document, error) {
	return nil, nil
}

func (m *mockDocumentRepo) CountInbox(ctx context.Context, employeeID int64, tab string) (int, error) {
	return 0, nil
}

type mockLineRepo struct {
	mu     sync.Mutex
	lines  map[int64]*entity.ApprovalLine
	nextID int64
}

func newMockLineRepo() *mockLineRepo {
	return &mockLineRepo{lines: make(map[int64]*entity.ApprovalLine), nextID: 1}
}

func (m *mockLineRepo) Create(ctx context.Context, line *entity.ApprovalLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line.ID = m.nextID
	m.nextID++
	copied := *line
	m.lines[line.ID] = &copied
	return nil
}

func (m *mockLineRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line, ok := m.lines[id]
	if !ok {
		return nil, nil
	}
	copied := *line
	return &copied, nil
}

func (m *mockLineRepo) GetByDocID(ctx context.Context, docID int64) ([]*entity.ApprovalLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalLine
	for _, line := range m.lines {
		if line.DocID == docID {
			copied := *line
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLineRepo) Update(ctx context.Context, line *entity.ApprovalLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *line
	m.lines[line.ID] = &copied
	return nil
}

func (m *mockLineRepo) DeleteByDocID(ctx context.Context, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, line := range m.lines {
		if line.DocID == docID {
			delete(m.lines, id)
		}
	}
	return nil
}

func (m *mockLineRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ApprovalLine, error) {
	return nil, nil
}

type mockReferenceRepo struct {
	mu     sync.Mutex
	refs   map[int64]*entity.Reference
	nextID int64
}

func newMockReferenceRepo() *mockReferenceRepo {
	return &mockReferenceRepo{refs: make(map[int64]*entity.Reference), nextID: 1}
}

func (m *mockReferenceRepo) Create(ctx context.Context, ref *entity.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref.ID = m.nextID
	m.nextID++
	copied := *ref
	m.refs[ref.ID] = &copied
	return nil
}

func (m *mockReferenceRepo) GetByDocID(ctx context.Context, docID int64) ([]*entity.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reference
	for _, ref := range m.refs {
		if ref.DocID == docID {
			copied := *ref
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockReferenceRepo) DeleteByDocID(ctx context.Context, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ref := range m.refs {
		if ref.DocID == docID {
			delete(m.refs, id)
		}
	}
	return nil
}

type mockAttachmentRepo struct {
	mu     sync.Mutex
	atts   map[int64]*entity.Attachment
	nextID int64
	err    error
}

func newMockAttachmentRepo() *mockAttachmentRepo {
	return &mockAttachmentRepo{atts: make(map[int64]*entity.Attachment), nextID: 1}
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	att.ID = m.nextID
	m.nextID++
	copied := *att
	m.atts[att.ID] = &copied
	return nil
}

func (m *mockAttachmentRepo) GetByDocID(ctx context.Context, docID int64) ([]*entity.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Attachment
	for _, att := range m.atts {
		if att.DocID == docID {
			copied := *att
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) DeleteByDocID(ctx context.Context, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, att := range m.atts {
		if att.DocID == docID {
			delete(m.atts, id)
		}
	}
	return nil
}

type mockSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMockSequenceRepo() *mockSequenceRepo {
	return &mockSequenceRepo{counters: make(map[string]int64)}
}

func (m *mockSequenceRepo) NextValue(ctx context.Context, seqType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counters[seqType]++
	return m.counters[seqType], nil
}

type mockTemplateRepo struct {
	mu        sync.Mutex
	templates map[int64]*entity.Template
}

func newMockTemplateRepo(templates ...*entity.Template) *mockTemplateRepo {
	m := &mockTemplateRepo{templates: make(map[int64]*entity.Template)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id int64) (*entity.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.templates[id], nil
}

func (m *mockTemplateRepo) GetByKey(ctx context.Context, templateKey string) (*entity.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.TemplateKey == templateKey {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]*entity.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Template
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

type mockBookmarkRepo struct {
	mu        sync.Mutex
	bookmarks map[string]*entity.Bookmark
	nextID    int64
}

func newMockBookmarkRepo() *mockBookmarkRepo {
	return &mockBookmarkRepo{bookmarks: make(map[string]*entity.Bookmark), nextID: 1}
}

func bookmarkKey(employeeID, templateID int64) string {
	return fmt.Sprintf("%d:%d", employeeID, templateID)
}

func (m *mockBookmarkRepo) Get(ctx context.Context, employeeID, templateID int64) (*entity.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookmarks[bookmarkKey(employeeID, templateID)], nil
}

func (m *mockBookmarkRepo) Create(ctx context.Context, bookmark *entity.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bookmark.ID = m.nextID
	m.nextID++
	m.bookmarks[bookmarkKey(bookmark.EmployeeID, bookmark.TemplateID)] = bookmark
	return nil
}

func (m *mockBookmarkRepo) Delete(ctx context.Context, employeeID, templateID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookmarks, bookmarkKey(employeeID, templateID))
	return nil
}

func (m *mockBookmarkRepo) ListByEmployee(ctx context.Context, employeeID int64) ([]*entity.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Bookmark
	for _, b := range m.bookmarks {
		if b.EmployeeID == employeeID {
			out = append(out, b)
		}
	}
	return out, nil
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*entity.Notification
	nextID        int64
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{nextID: 1}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.nextID
	m.nextID++
	copied := *n
	m.notifications = append(m.notifications, &copied)
	return nil
}

func (m *mockNotificationRepo) ExistsForEvent(ctx context.Context, eventID string, recipientID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.EventID == eventID && n.RecipientID == recipientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

// mockStore records puts and deletes without touching disk.
type mockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	nextKey int
	putErr  error
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string][]byte)}
}

func (m *mockStore) Put(ctx context.Context, content []byte, directory, filename string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.nextKey++
	key := fmt.Sprintf("%s/%d_%s", directory, m.nextKey, filename)
	m.objects[key] = content
	return key, nil
}

func (m *mockStore) Delete(ctx context.Context, storageKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, storageKey)
	return nil
}

func (m *mockStore) Presign(storageKey string, ttl time.Duration) (string, error) {
	return "https://files.test/" + storageKey, nil
}

// mockPublisher captures published events in order.
type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *mockPublisher) byType(t event.Type) []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.Event
	for _, evt := range m.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

type mockDirectory struct {
	names map[int64]string
}

func (m *mockDirectory) NameOf(ctx context.Context, employeeID int64) string {
	return m.names[employeeID]
}

// mockTxManager runs the function directly; transactional semantics are
// covered by the sqlite integration tests.
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
