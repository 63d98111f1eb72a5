package storage

import (
	"sync"
	"time"

	"github.com/huandu/go-clone"
	"github.com/serroba/docpatch/internal/history"
)

// documentData holds all persisted data for a single document.
type documentData struct {
	snapshot *Snapshot
	records  []Record
}

// MemoryStore is an in-memory implementation of the Store interface.
// Stored values are deep copies, so callers can't alias them.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*documentData
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*documentData),
	}
}

// CreateDocument creates a new document with the given ID.
func (m *MemoryStore) CreateDocument(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[docID]; exists {
		return ErrDocumentExists
	}

	m.docs[docID] = &documentData{
		records: make([]Record, 0),
	}

	return nil
}

// DeleteDocument removes a document and everything stored for it.
func (m *MemoryStore) DeleteDocument(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docs[docID]; !exists {
		return ErrDocumentNotFound
	}

	delete(m.docs, docID)

	return nil
}

// DocumentExists checks if a document exists.
func (m *MemoryStore) DocumentExists(docID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.docs[docID]

	return exists, nil
}

// SaveSnapshot persists a snapshot of the document at state.Version.
func (m *MemoryStore) SaveSnapshot(docID string, state history.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[docID]
	if !exists {
		return ErrDocumentNotFound
	}

	doc.snapshot = &Snapshot{
		DocID:     docID,
		Version:   state.Version,
		State:     cloneState(state),
		CreatedAt: time.Now(),
	}

	// Prune records that are now covered by the snapshot
	m.pruneRecords(doc, state.Version)

	return nil
}

// pruneRecords removes records at or before the snapshot version.
func (m *MemoryStore) pruneRecords(doc *documentData, snapshotVersion int) {
	kept := make([]Record, 0, len(doc.records))

	for _, rec := range doc.records {
		if rec.Version > snapshotVersion {
			kept = append(kept, rec)
		}
	}

	doc.records = kept
}

// LoadSnapshot retrieves the latest snapshot for a document.
func (m *MemoryStore) LoadSnapshot(docID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return Snapshot{}, ErrDocumentNotFound
	}

	if doc.snapshot == nil {
		return Snapshot{}, ErrSnapshotNotFound
	}

	snapshot := *doc.snapshot
	snapshot.State = cloneState(snapshot.State)

	return snapshot, nil
}

// AppendRecord adds a record to the document's log.
func (m *MemoryStore) AppendRecord(docID string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[docID]
	if !exists {
		return ErrDocumentNotFound
	}

	doc.records = append(doc.records, cloneRecord(rec))

	return nil
}

// LoadRecords retrieves all records after the given version.
func (m *MemoryStore) LoadRecords(docID string, sinceVersion int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return nil, ErrDocumentNotFound
	}

	var result []Record

	for _, rec := range doc.records {
		if rec.Version > sinceVersion {
			result = append(result, cloneRecord(rec))
		}
	}

	return result, nil
}

// LatestVersion returns the highest version stored for a document.
func (m *MemoryStore) LatestVersion(docID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.docs[docID]
	if !exists {
		return 0, ErrDocumentNotFound
	}

	// Records are newer than the snapshot
	if len(doc.records) > 0 {
		return doc.records[len(doc.records)-1].Version, nil
	}

	if doc.snapshot != nil {
		return doc.snapshot.Version, nil
	}

	return 0, nil
}

func cloneState(s history.State) history.State {
	return clone.Clone(s).(history.State)
}

func cloneRecord(rec Record) Record {
	return clone.Clone(rec).(Record)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
