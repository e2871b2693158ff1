package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed hands out one token bucket per key and forgets keys that have been
// idle for longer than the expiry.
type Keyed struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	expiry   time.Duration
	now      func() time.Time
}

// NewKeyed allows perMinute events per key with the given burst.
func NewKeyed(perMinute float64, burst int) *Keyed {
	if burst < 1 {
		burst = 1
	}
	return &Keyed{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		expiry:   10 * time.Minute,
		now:      time.Now,
	}
}

func (k *Keyed) get(key string) *visitor {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, ok := k.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.visitors[key] = v
	}
	v.lastSeen = k.now()
	return v
}

func (k *Keyed) Allow(key string) bool {
	return k.get(key).limiter.AllowN(k.now(), 1)
}

// Cleanup drops idle keys until ctx is done.
func (k *Keyed) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.sweep()
		}
	}
}

func (k *Keyed) sweep() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for key, v := range k.visitors {
		if k.now().Sub(v.lastSeen) > k.expiry {
			delete(k.visitors, key)
		}
	}
}
