package sessionstore

import (
	"context"
	"sync"
	"time"

	"yourvocab/internal/quiz"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time

	lockMu sync.Mutex
	locks  map[string]*keyLock
}

type entry struct {
	session   quiz.Session
	expiresAt time.Time
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryStore creates a store whose sessions expire ttl after their last save.
// A ttl of zero keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		locks:    make(map[string]*keyLock),
	}
}

func (m *MemoryStore) expired(e entry, now time.Time) bool {
	return m.ttl > 0 && now.After(e.expiresAt)
}

// Get returns a copy of the stored session
func (m *MemoryStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, quiz.ErrSessionNotFound
	}
	if m.expired(e, m.now()) {
		delete(m.sessions, id)
		return nil, quiz.ErrSessionNotFound
	}
	s := e.session
	return &s, nil
}

// Save stores a copy of s and refreshes its expiry
func (m *MemoryStore) Save(ctx context.Context, s *quiz.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = entry{session: *s, expiresAt: m.now().Add(m.ttl)}
	return nil
}

// Sweep removes expired sessions and returns how many were dropped
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Lock takes the per-session mutex
func (m *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	m.lockMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[id] = l
	}
	l.refs++
	m.lockMu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(id, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(id, l)
		})
	}, nil
}

func (m *MemoryStore) release(id string, l *keyLock) {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
}
