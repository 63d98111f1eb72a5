package acl

import (
	"sort"
	"sync"
)

// MemoryStore keeps permissions in memory, indexed by document.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[string]map[string]Role // docID -> userID -> role
}

// NewMemoryStore creates a new in-memory permission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles: make(map[string]map[string]Role),
	}
}

// Grant sets the role of a user on a document.
func (m *MemoryStore) Grant(docID, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.roles[docID]
	if !ok {
		users = make(map[string]Role)
		m.roles[docID] = users
	}

	users[userID] = role

	return nil
}

// Revoke removes a user's permission on a document.
func (m *MemoryStore) Revoke(docID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := m.roles[docID]
	if _, ok := users[userID]; !ok {
		return ErrPermissionNotFound
	}

	delete(users, userID)

	if len(users) == 0 {
		delete(m.roles, docID)
	}

	return nil
}

// RevokeAll removes every permission on a document.
func (m *MemoryStore) RevokeAll(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles, docID)

	return nil
}

// GetRole returns the user's role for a document.
func (m *MemoryStore) GetRole(docID, userID string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[docID][userID]
	if !ok {
		return 0, ErrPermissionNotFound
	}

	return role, nil
}

// ListPermissions returns all permissions for a document ordered by user.
func (m *MemoryStore) ListPermissions(docID string) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := m.roles[docID]
	result := make([]Permission, 0, len(users))

	for userID, role := range users {
		result = append(result, Permission{DocID: docID, UserID: userID, Role: role})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })

	return result, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
