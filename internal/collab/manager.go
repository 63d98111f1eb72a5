package collab

import (
	"sync"

	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/ot"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/serroba/docpatch/internal/ws"
)

// Manager manages multiple document sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// Shared dependencies
	typ            ot.Type
	store          storage.Store
	permStore      acl.Store
	hub            *ws.Hub
	snapshotPolicy *storage.SnapshotPolicy
	metrics        *Metrics
}

// ManagerConfig holds configuration for creating a manager.
type ManagerConfig struct {
	Type           ot.Type
	Store          storage.Store
	PermStore      acl.Store
	Hub            *ws.Hub
	SnapshotPolicy *storage.SnapshotPolicy
	Metrics        *Metrics
}

// NewManager creates a new session manager.
func NewManager(cfg ManagerConfig) *Manager {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Manager{
		sessions:       make(map[string]*Session),
		typ:            cfg.Type,
		store:          cfg.Store,
		permStore:      cfg.PermStore,
		hub:            cfg.Hub,
		snapshotPolicy: cfg.SnapshotPolicy,
		metrics:        metrics,
	}
}

// GetOrCreateSession returns an existing session or loads a new one.
// Returns storage.ErrDocumentNotFound for unknown documents.
func (m *Manager) GetOrCreateSession(docID string) (*Session, error) {
	// Try read lock first
	m.mu.RLock()
	session, exists := m.sessions[docID]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists = m.sessions[docID]; exists {
		return session, nil
	}

	var permChecker *acl.Checker
	if m.permStore != nil {
		permChecker = acl.NewChecker(m.permStore)
	}

	session = NewSession(SessionConfig{
		DocID:          docID,
		Type:           m.typ,
		Store:          m.store,
		PermChecker:    permChecker,
		Hub:            m.hub,
		SnapshotPolicy: m.snapshotPolicy,
		Metrics:        m.metrics,
	})

	if err := session.Load(); err != nil {
		return nil, err
	}

	m.sessions[docID] = session
	m.metrics.ActiveSessions.Inc()

	return session, nil
}

// GetSession returns an existing session or nil if not found.
func (m *Manager) GetSession(docID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessions[docID]
}

// remove detaches a session from the manager.
func (m *Manager) remove(docID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[docID]
	if !exists {
		return nil
	}

	delete(m.sessions, docID)
	m.metrics.ActiveSessions.Dec()

	return session
}

// CloseSession closes and removes a session, saving a final snapshot.
func (m *Manager) CloseSession(docID string) error {
	session := m.remove(docID)
	if session == nil {
		return nil
	}

	return session.Close()
}

// DeleteDocument drops the session of a document and removes the document
// with its permissions from storage. Subscribed clients are told it is gone.
func (m *Manager) DeleteDocument(docID string) error {
	if session := m.remove(docID); session != nil {
		session.discard()
	}

	if err := m.store.DeleteDocument(docID); err != nil {
		return err
	}

	if m.snapshotPolicy != nil {
		m.snapshotPolicy.Forget(docID)
	}

	if m.permStore != nil {
		if err := m.permStore.RevokeAll(docID); err != nil {
			return err
		}
	}

	if m.hub != nil {
		m.hub.CloseDocument(docID, "document deleted")
	}

	return nil
}

// CloseAll closes all sessions.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))

	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}

	m.sessions = make(map[string]*Session)
	m.metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	var lastErr error

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// SessionCount returns the number of active sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
