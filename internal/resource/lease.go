package resource

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrLeaseHeld     = errors.New("lease is already held")
	ErrLeaseNotFound = errors.New("lease not found")
)

type Lease struct {
	Key        string
	Token      string
	AcquiredAt time.Time
}

// Leases is a registry of exclusive keyed leases. Expired leases are treated
// as released.
type Leases struct {
	mu     sync.Mutex
	held   map[string]Lease
	ttl    time.Duration
	now    func() time.Time
	tokens func() string
}

func NewLeases(ttl time.Duration, tokens func() string) *Leases {
	return &Leases{
		held:   make(map[string]Lease),
		ttl:    ttl,
		now:    time.Now,
		tokens: tokens,
	}
}

func (l *Leases) expired(lease Lease) bool {
	return l.ttl > 0 && l.now().Sub(lease.AcquiredAt) > l.ttl
}

// Acquire creates the lease for key. It fails with ErrLeaseHeld while another
// live lease exists for the same key.
func (l *Leases) Acquire(key string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.held[key]; ok && !l.expired(existing) {
		return Lease{}, ErrLeaseHeld
	}

	lease := Lease{Key: key, Token: l.tokens(), AcquiredAt: l.now()}
	l.held[key] = lease
	return lease, nil
}

// Check returns the live lease for key if token matches it.
func (l *Leases) Check(key, token string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lease, ok := l.held[key]
	if !ok || l.expired(lease) || lease.Token != token {
		return Lease{}, ErrLeaseNotFound
	}
	return lease, nil
}

func (l *Leases) Release(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.held[key]
	delete(l.held, key)
	return ok
}

// Sweep drops expired leases. Keys are rarely reused, so without it the
// registry only grows.
func (l *Leases) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, lease := range l.held {
		if l.expired(lease) {
			delete(l.held, key)
		}
	}
}

func (l *Leases) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
