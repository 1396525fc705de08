package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is the session expiry used when none is configured.
const DefaultTTL = time.Hour

// MemoryStore is an in-process Store. Sessions expire lazily on access and
// eagerly via Sweep, which the daemon schedules on a cron.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time // injectable clock for tests

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	state    State
	bag      Bag
	deadline time.Time
}

// NewMemoryStore creates a MemoryStore with the given TTL (DefaultTTL when
// ttl <= 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// session returns the live session for userID, or nil when absent/expired.
// Caller must hold mu.
func (m *MemoryStore) session(userID string) *memorySession {
	s, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	if m.now().After(s.deadline) {
		delete(m.sessions, userID)
		return nil
	}
	return s
}

// touch refreshes the session deadline, creating the session if needed.
// Caller must hold mu.
func (m *MemoryStore) touch(userID string) *memorySession {
	s := m.session(userID)
	if s == nil {
		s = &memorySession{bag: make(Bag)}
		m.sessions[userID] = s
	}
	s.deadline = m.now().Add(m.ttl)
	return s
}

// State returns the user's current state tag.
func (m *MemoryStore) State(ctx context.Context, userID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(userID)
	if s == nil {
		return "", nil
	}
	return s.state, nil
}

// SetState sets the user's state tag.
func (m *MemoryStore) SetState(ctx context.Context, userID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID).state = state
	return nil
}

// Data returns a copy of the user's bag.
func (m *MemoryStore) Data(ctx context.Context, userID string) (Bag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Bag)
	if s := m.session(userID); s != nil {
		for k, v := range s.bag {
			out[k] = v
		}
	}
	return out, nil
}

// Update merges partial into the user's bag.
func (m *MemoryStore) Update(ctx context.Context, userID string, partial Bag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.touch(userID)
	for k, v := range partial {
		s.bag[k] = v
	}
	return nil
}

// Clear removes the user's session.
func (m *MemoryStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.After(s.deadline) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
