package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultTimedCapacity bounds the Timed store when no size is configured.
const DefaultTimedCapacity = 4096

// Timed is a bounded in-memory store with per-entry deadlines.
//
// Expired entries are removed lazily when read, or in bulk by Sweep. When
// the store is full the least recently used entry is evicted. Racing stores
// to one key resolve last-writer-wins.
//
// Reads go straight to the LRU. mu orders writes against expiry removal, so
// an entry is only removed if it is still expired when the removal runs and
// a fresh store is never dropped.
type Timed struct {
	cache *lru.Cache
	now   func() time.Time
	mu    sync.Mutex
}

type timedEntry struct {
	entry    Entry
	deadline time.Time
}

// TimedOption configures a Timed store.
type TimedOption func(*Timed)

// WithClock sets the clock deadlines are measured against.
func WithClock(now func() time.Time) TimedOption {
	return func(t *Timed) { t.now = now }
}

// NewTimed returns a Timed store holding at most size entries.
func NewTimed(size int, opts ...TimedOption) (*Timed, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("timed cache: %w", err)
	}
	t := &Timed{cache: c, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Get returns the entry under key if it has not expired.
func (t *Timed) Get(key string) (Entry, bool) {
	v, ok := t.cache.Get(key)
	if !ok {
		return Entry{}, false
	}
	now := t.now()
	te := v.(timedEntry)
	if !now.Before(te.deadline) {
		t.removeExpired(key, now)
		return Entry{}, false
	}
	return te.entry, true
}

// Store inserts or replaces the entry under key, expiring ttl from now. A
// non-positive ttl stores an entry that is already expired.
func (t *Timed) Store(key string, e Entry, ttl time.Duration) {
	te := timedEntry{entry: e, deadline: t.now().Add(ttl)}
	t.mu.Lock()
	t.cache.Add(key, te)
	t.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were removed.
func (t *Timed) Sweep() int {
	now := t.now()
	var n int
	for _, k := range t.cache.Keys() {
		if t.removeExpired(k, now) {
			n++
		}
	}
	return n
}

// removeExpired removes key if the entry it holds now is expired at now.
func (t *Timed) removeExpired(key any, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache.Peek(key)
	if !ok || now.Before(v.(timedEntry).deadline) {
		return false
	}
	t.cache.Remove(key)
	return true
}

// Len returns the number of entries, including expired ones not yet swept.
func (t *Timed) Len() int { return t.cache.Len() }
