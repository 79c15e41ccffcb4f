package cache

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Frozen is a permanent, read-mostly store. Entries are never overwritten or
// evicted.
//
// Readers dereference an immutable map published through an atomic pointer
// and never lock. Writers copy the map under a mutex and publish the copy,
// so each Store is O(n); keys are expected to be written once.
type Frozen struct {
	mu      sync.Mutex
	entries atomic.Pointer[map[string]Entry]
}

// NewFrozen returns an empty Frozen store.
func NewFrozen() *Frozen {
	f := &Frozen{}
	empty := map[string]Entry{}
	f.entries.Store(&empty)
	return f
}

// Get returns the entry under key.
func (f *Frozen) Get(key string) (Entry, bool) {
	e, ok := (*f.entries.Load())[key]
	return e, ok
}

// Store publishes e under key unless key is already present. It reports
// whether this call published; a later value for a present key is dropped.
func (f *Frozen) Store(key string, e Entry) bool {
	if _, ok := f.Get(key); ok {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cur := *f.entries.Load()
	if _, ok := cur[key]; ok {
		return false
	}
	next := make(map[string]Entry, len(cur)+1)
	maps.Copy(next, cur)
	next[key] = e
	f.entries.Store(&next)
	return true
}

// Len returns the number of entries.
func (f *Frozen) Len() int {
	return len(*f.entries.Load())
}
