// Package keylock provides mutual exclusion scoped to a string key, so that
// independent keys never contend on a single global lock.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock hands out per-key mutexes on demand and reclaims them when the
// last holder releases.
type KeyLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{entries: make(map[string]*entry)}
}

func (k *KeyLock) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyLock) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until the lock for key is held and returns the unlock function.
func (k *KeyLock) Lock(key string) func() {
	e := k.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}
}

// TryLock attempts to take the lock for key without blocking. It returns the
// unlock function and true on success, or nil and false if the key is busy.
func (k *KeyLock) TryLock(key string) (func(), bool) {
	e := k.acquire(key)
	if !e.mu.TryLock() {
		k.release(key, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}, true
}
