// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session           // keyed by session ID
	messages    map[string][]*Message         // keyed by session ID
	permissions map[string]*PermissionRequest // keyed by request ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		sessions:    make(map[string]*Session),
		messages:    make(map[string][]*Message),
		permissions: make(map[string]*PermissionRequest),
	}
}

// CreateSession stores a new session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return ErrDuplicateSession
	}

	// Make a copy to avoid external modification
	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a session by ID.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	s := *session
	return &s, nil
}

// SessionByStreamingID finds the session carrying the given streaming ID.
func (m *MockStore) SessionByStreamingID(ctx context.Context, streamingID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if streamingID == "" {
		return nil, ErrNotFound
	}
	for _, session := range m.sessions {
		if session.StreamingID == streamingID {
			s := *session
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// ListSessions retrieves sessions ordered by most recently updated.
func (m *MockStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		s := *session
		sessions = append(sessions, &s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// UpdateSession updates an existing session.
func (m *MockStore) UpdateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return ErrNotFound
	}

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// SaveMessage stores a transcript entry.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgCopy := *msg
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], &msgCopy)
	return nil
}

// SessionMessages retrieves all messages for a session in chronological order.
func (m *MockStore) SessionMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[sessionID]
	messages := make([]*Message, 0, len(stored))
	for _, msg := range stored {
		msgCopy := *msg
		messages = append(messages, &msgCopy)
	}

	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})

	return messages, nil
}

// CountMessages returns the number of messages stored for a session.
func (m *MockStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[sessionID]), nil
}

// CreatePermission stores a new permission request.
func (m *MockStore) CreatePermission(ctx context.Context, req *PermissionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *req
	if r.Status == "" {
		r.Status = PermissionPending
	}
	m.permissions[r.ID] = &r
	return nil
}

// GetPermission retrieves a permission request by ID.
func (m *MockStore) GetPermission(ctx context.Context, id string) (*PermissionRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, exists := m.permissions[id]
	if !exists {
		return nil, ErrNotFound
	}

	r := *req
	return &r, nil
}

// ListPermissions retrieves permission requests in chronological order.
func (m *MockStore) ListPermissions(ctx context.Context, streamingID, status string) ([]*PermissionRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var reqs []*PermissionRequest
	for _, req := range m.permissions {
		if streamingID != "" && req.StreamingID != streamingID {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		r := *req
		reqs = append(reqs, &r)
	}

	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})

	return reqs, nil
}

// ResolvePermission records a decision on a pending permission request.
func (m *MockStore) ResolvePermission(ctx context.Context, id, status, denyReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, exists := m.permissions[id]
	if !exists {
		return ErrNotFound
	}
	if req.Status != PermissionPending {
		return ErrAlreadyResolved
	}

	req.Status = status
	req.DenyReason = denyReason
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
