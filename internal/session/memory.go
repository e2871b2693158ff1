package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"slimwell/intake-backend/internal"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryLock struct {
	token string
	until time.Time
}

// MemoryStore keeps sessions in process memory. Values are stored encoded so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	locks   map[uuid.UUID]memoryLock
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[uuid.UUID]memoryEntry),
		locks:   make(map[uuid.UUID]memoryLock),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok || m.now().After(entry.expiresAt) {
		delete(m.entries, id)
		return Session{}, internal.ErrSessionNotFound
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{data: data, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, ok := m.locks[id]; ok && m.now().Before(held.until) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.locks[id] = memoryLock{token: token, until: m.now().Add(ttl)}
	return token, true, nil
}

// Unlock frees the lock only when token still owns it.
func (m *MemoryStore) Unlock(ctx context.Context, id uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	held, ok := m.locks[id]
	if !ok || held.token != token {
		return ErrLockNotHeld
	}
	delete(m.locks, id)
	return nil
}
