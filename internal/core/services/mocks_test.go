package services

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockSourceClient implements driven.SourceClient. Responses are keyed
// by relative URL; unknown probes default to alive.
type mockSourceClient struct {
	mu        stdsync.Mutex
	responses map[string][]map[string]any
	errors    map[string]error
	probes    map[string]bool
	probeErrs map[string]error
	binary    map[string][]byte
	binaryErr error
	calls     []string
}

var _ driven.SourceClient = (*mockSourceClient)(nil)

func newMockSourceClient() *mockSourceClient {
	return &mockSourceClient{
		responses: make(map[string][]map[string]any),
		errors:    make(map[string]error),
		probes:    make(map[string]bool),
		probeErrs: make(map[string]error),
		binary:    make(map[string][]byte),
	}
}

func (m *mockSourceClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSourceClient) Fetch(_ context.Context, relURL, _ string, _ driven.FetchHint) ([]map[string]any, error) {
	m.record(relURL)
	if err, ok := m.errors[relURL]; ok {
		return nil, err
	}
	return m.responses[relURL], nil
}

func (m *mockSourceClient) FetchBinary(_ context.Context, relURL string) ([]byte, error) {
	m.record(relURL)
	if m.binaryErr != nil {
		return nil, m.binaryErr
	}
	return m.binary[relURL], nil
}

func (m *mockSourceClient) Probe(_ context.Context, relURL, query string) (bool, error) {
	key := relURL + query
	m.record(key)
	if err, ok := m.probeErrs[key]; ok {
		return false, err
	}
	if alive, ok := m.probes[key]; ok {
		return alive, nil
	}
	return true, nil
}

func (m *mockSourceClient) Query(_ domain.Window, _ domain.ObjectType) string {
	return ""
}

// mockSearchIndex implements driven.SearchIndex.
type mockSearchIndex struct {
	mu          stdsync.Mutex
	indexed     []domain.Document
	deleted     [][]string
	indexErr    error
	deleteErr   error
	docErrors   map[string][]string
	permissions map[string][]string
	removed     []string
	sourceID    string
}

var _ driven.SearchIndex = (*mockSearchIndex)(nil)

func newMockSearchIndex() *mockSearchIndex {
	return &mockSearchIndex{
		docErrors:   make(map[string][]string),
		permissions: make(map[string][]string),
		sourceID:    "source-1",
	}
}

func (m *mockSearchIndex) IndexDocuments(_ context.Context, docs []domain.Document) ([]driven.DocumentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	m.indexed = append(m.indexed, docs...)
	results := make([]driven.DocumentResult, len(docs))
	for i, doc := range docs {
		results[i] = driven.DocumentResult{ID: doc.ID, Errors: m.docErrors[doc.ID]}
	}
	return results, nil
}

func (m *mockSearchIndex) DeleteDocuments(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, ids)
	return nil
}

func (m *mockSearchIndex) AddPermissions(_ context.Context, user string, permissions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions[user] = permissions
	return nil
}

func (m *mockSearchIndex) ListPermissions(_ context.Context) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.permissions))
	for user, perms := range m.permissions {
		out[user] = perms
	}
	return out, nil
}

func (m *mockSearchIndex) RemovePermissions(_ context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.permissions, user)
	m.removed = append(m.removed, user)
	return nil
}

func (m *mockSearchIndex) CreateContentSource(_ context.Context, _ string) (string, error) {
	return m.sourceID, nil
}

func (m *mockSearchIndex) indexedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.indexed))
	for i, doc := range m.indexed {
		ids[i] = doc.ID
	}
	return ids
}

func (m *mockSearchIndex) deletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, batch := range m.deleted {
		ids = append(ids, batch...)
	}
	return ids
}

// mockCheckpointStore implements driven.CheckpointStore.
type mockCheckpointStore struct {
	mu       stdsync.Mutex
	windows  map[string]domain.Window
	setErr   error
	recorded []checkpointRecord
}

type checkpointRecord struct {
	collection string
	at         time.Time
	mode       domain.SyncMode
}

var _ driven.CheckpointStore = (*mockCheckpointStore)(nil)

func newMockCheckpointStore() *mockCheckpointStore {
	return &mockCheckpointStore{windows: make(map[string]domain.Window)}
}

func (m *mockCheckpointStore) Window(_ context.Context, collection string, now time.Time) (domain.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[collection]; ok {
		return w, nil
	}
	return domain.NewWindow(domain.DefaultStartTime, now), nil
}

func (m *mockCheckpointStore) Set(_ context.Context, collection string, at time.Time, mode domain.SyncMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.recorded = append(m.recorded, checkpointRecord{collection: collection, at: at, mode: mode})
	return nil
}

// mockInventoryStore implements driven.InventoryStore.
type mockInventoryStore struct {
	mu      stdsync.Mutex
	inv     *domain.Inventory
	loadErr error
	saved   *domain.Inventory
}

var _ driven.InventoryStore = (*mockInventoryStore)(nil)

func newMockInventoryStore() *mockInventoryStore {
	return &mockInventoryStore{inv: domain.NewInventory()}
}

func (m *mockInventoryStore) Load(_ context.Context) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.inv, nil
}

func (m *mockInventoryStore) Save(_ context.Context, inv *domain.Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = inv.Clone()
	return nil
}

// mockExtractor implements driven.TextExtractor.
type mockExtractor struct {
	text string
	err  error
}

var _ driven.TextExtractor = (*mockExtractor)(nil)

func (m *mockExtractor) Extract(_ context.Context, _ []byte) (string, error) {
	return m.text, m.err
}
