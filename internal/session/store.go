package session

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Load when no session is persisted.
	ErrNotFound = errors.New("session: no persisted session")

	// ErrCorrupt is returned by Load when a persisted session exists but cannot
	// be reconstructed. Callers should treat it like ErrNotFound and clear the store.
	ErrCorrupt = errors.New("session: persisted session is corrupt")

	// ErrExpired is returned by Save from stores that expire records when the
	// session's expiry has already passed. Nothing is written.
	ErrExpired = errors.New("session: session has already expired")
)

// Store persists the current session.
//
// Save replaces the whole record atomically. A successful Save is followed by
// a Load of an equal session; a store that cannot honour that rejects the
// session with ErrExpired instead. Clear is idempotent.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: cannot save nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s.Clone()
	return nil
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNotFound
	}
	return m.current.Clone(), nil
}

// Clear removes the stored session.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
