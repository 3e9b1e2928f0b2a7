// Package dedupe defines the interface for idempotency tracking.
//
// Every consumer of the at-least-once bus dedupes on a natural key: the
// leaderboard on match ids, the ingestion pipeline on point keys.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Deduper records seen keys to absorb redelivery.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key from the seen set, allowing a retry. Used when
	// a key was recorded but downstream processing failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// tracker implements Deduper. Bounded mode evicts least-recently-seen keys
// through an LRU cache; unbounded mode keeps a plain map.
type tracker struct {
	mu      sync.Mutex
	maxSize int
	cache   *lru.Cache[string, struct{}] // bounded mode
	seen    map[string]struct{}          // unbounded mode
	size    atomic.Int64
}

// New creates a deduper with configuration options.
func New(opts ...Option) Deduper {
	t := &tracker{
		maxSize: 50000, // default bound
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.maxSize > 0 {
		// lru.New only fails on a non-positive size, which is excluded here.
		t.cache, _ = lru.New[string, struct{}](t.maxSize)
	} else {
		t.seen = make(map[string]struct{})
	}

	return t
}

// SeenAndRecord atomically checks and records a key.
func (t *tracker) SeenAndRecord(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cache != nil {
		if _, ok := t.cache.Get(key); ok {
			return true
		}
		if evicted := t.cache.Add(key, struct{}{}); !evicted {
			t.size.Add(1)
		}
		return false
	}

	if _, ok := t.seen[key]; ok {
		return true
	}
	t.seen[key] = struct{}{}
	t.size.Add(1)
	return false
}

// Unrecord removes a key from the seen set.
func (t *tracker) Unrecord(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cache != nil {
		if t.cache.Remove(key) {
			t.size.Add(-1)
		}
		return
	}

	if _, ok := t.seen[key]; ok {
		delete(t.seen, key)
		t.size.Add(-1)
	}
}

// Size returns the current number of tracked keys.
func (t *tracker) Size() int64 {
	return t.size.Load()
}
