// Package resource provides scoped acquire/release handles for process-wide
// resources that must be created at most once, and keyed leases for resources
// that may be held by one owner at a time.
package resource

import (
	"context"
	"sync"
)

// Loader lazily creates a value on first Acquire and hands the same value to
// every later caller until Release is called. A failed load is not cached.
type Loader[T any] struct {
	mu      sync.Mutex
	load    func(ctx context.Context) (T, error)
	close   func(T) error
	value   T
	loaded  bool
	loadCnt int
}

func NewLoader[T any](load func(ctx context.Context) (T, error), closeFn func(T) error) *Loader[T] {
	return &Loader[T]{load: load, close: closeFn}
}

func (l *Loader[T]) Acquire(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.value, nil
	}

	value, err := l.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = value
	l.loaded = true
	l.loadCnt++
	return value, nil
}

// Loaded reports whether a value is currently held.
func (l *Loader[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Loads returns how many times the underlying load function succeeded.
func (l *Loader[T]) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadCnt
}

// Release tears down the held value. The next Acquire loads again.
func (l *Loader[T]) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		return nil
	}

	value := l.value
	var zero T
	l.value = zero
	l.loaded = false

	if l.close != nil {
		return l.close(value)
	}
	return nil
}
