package history

import "sync"

// ring is a fixed-capacity buffer that overwrites its oldest entry when full.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // next write position
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		panic("history capacity must be greater than zero")
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// all returns a copy of the contents, oldest first.
func (r *ring[T]) all() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return nil
	}

	result := make([]T, r.size)
	if r.size < len(r.items) {
		copy(result, r.items[:r.size])
	} else {
		// wrapped: head points at the oldest item
		n := copy(result, r.items[r.head:])
		copy(result[n:], r.items[:r.head])
	}
	return result
}

func (r *ring[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *ring[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
	r.size = 0
	r.head = 0
}
