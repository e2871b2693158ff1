package identity

import (
	"context"
	"sync"
	"time"

	"slimwell/intake-backend/internal"
)

// Pending is a code that has been sent and not yet confirmed.
type Pending struct {
	Phone       string    `json:"phone"`
	SessionInfo string    `json:"sessionInfo"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PendingStore keeps in-flight verifications keyed by verification id until
// they are confirmed (single use) or expire. Get returns
// ErrVerificationNotFound for unknown ids and ErrCodeExpired for stale ones.
type PendingStore interface {
	Put(ctx context.Context, id string, p Pending) error
	Get(ctx context.Context, id string) (Pending, error)
	Delete(ctx context.Context, id string) error
}

// MemoryPendingStore is the single-instance PendingStore. Expired entries
// stay readable as expired until the next Sweep.
type MemoryPendingStore struct {
	mu   sync.Mutex
	data map[string]Pending
	now  func() time.Time
}

func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{
		data: make(map[string]Pending),
		now:  time.Now,
	}
}

func (s *MemoryPendingStore) Put(_ context.Context, id string, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = p
	return nil
}

func (s *MemoryPendingStore) Get(_ context.Context, id string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[id]
	if !ok {
		return Pending{}, internal.ErrVerificationNotFound
	}
	if s.now().After(p.ExpiresAt) {
		delete(s.data, id)
		return Pending{}, internal.ErrCodeExpired
	}
	return p, nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Sweep drops every expired entry.
func (s *MemoryPendingStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.data {
		if s.now().After(p.ExpiresAt) {
			delete(s.data, id)
		}
	}
}

// Len is the number of entries held, expired or not.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
