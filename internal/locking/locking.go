// Package locking serializes mutations per entity. Each trip ledger, wallet,
// and savings goal is an independent lockable unit: operations on distinct
// units proceed without blocking each other, while mutations within one unit
// run one at a time.
package locking

import "sync"

// Registry hands out one mutex per entity key. Mutexes are created lazily
// and kept for the life of the process.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.RWMutex)}
}

func (r *Registry) get(key string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[key] = l
	}
	return l
}

// Lock acquires the exclusive lock for a single entity and returns its
// release function.
func (r *Registry) Lock(key string) func() {
	l := r.get(key)
	l.Lock()
	return l.Unlock
}

// RLock acquires the shared lock for read-only snapshots.
func (r *Registry) RLock(key string) func() {
	l := r.get(key)
	l.RLock()
	return l.RUnlock
}

// LockPair acquires exclusive locks on two entities in ascending key order,
// preventing deadlock when concurrent operations span the same pair in
// opposite directions. Both keys must differ.
func (r *Registry) LockPair(a, b string) func() {
	if b < a {
		a, b = b, a
	}
	first, second := r.get(a), r.get(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
