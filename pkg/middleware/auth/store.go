package auth

import (
	"context"
	"sync"
	"time"
)

// Store holds session credentials keyed by session id. Get reports a missing
// session with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, sessionID string) (Credential, bool, error)
	Put(ctx context.Context, sessionID string, c Credential) error
	Clear(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	cred     Credential
	deadline time.Time // zero = no expiry
}

// MemoryStore is a process-local Store for single-instance deployments and
// tests. Entries expire ttl after their last Put when ttl > 0.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Credential, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Credential{}, false, nil
	}
	if !e.deadline.IsZero() && !s.now().Before(e.deadline) {
		s.mu.Lock()
		// re-check: a concurrent Put may have renewed it
		if cur, ok := s.entries[sessionID]; ok && cur.deadline.Equal(e.deadline) {
			delete(s.entries, sessionID)
		}
		s.mu.Unlock()
		return Credential{}, false, nil
	}
	return e.cred, true, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, c Credential) error {
	c.SessionID = sessionID
	e := memoryEntry{cred: c}
	if s.ttl > 0 {
		e.deadline = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[sessionID] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live and not-yet-collected entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
