package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memo caches computed values keyed by string and collapses concurrent
// computations of the same key. Invalidate bumps a generation counter so a
// computation that started before a write never repopulates the cache.
type Memo[T any] struct {
	lru        *LRUCache[T]
	group      singleflight.Group
	generation atomic.Uint64
	hits       atomic.Uint64
	misses     atomic.Uint64
}

func NewMemo[T any](maxSize int, ttl time.Duration) *Memo[T] {
	return &Memo[T]{lru: NewLRUCache[T](maxSize, ttl)}
}

// Do returns the cached value for key or calls compute once for all
// concurrent callers.
func (m *Memo[T]) Do(key string, compute func() (T, error)) (T, error) {
	gen := m.generation.Load()
	k := fmt.Sprintf("%d:%s", gen, key)
	if v, ok := m.lru.Get(k); ok {
		m.hits.Add(1)
		return v, nil
	}
	m.misses.Add(1)

	v, err, _ := m.group.Do(k, func() (any, error) {
		v, err := compute()
		if err != nil {
			return v, err
		}
		if m.generation.Load() == gen {
			m.lru.Set(k, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every cached value.
func (m *Memo[T]) Invalidate() {
	m.generation.Add(1)
	m.lru.Clear()
}

func (m *Memo[T]) Generation() uint64 { return m.generation.Load() }

// Stats returns hit and miss counters since creation.
func (m *Memo[T]) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *Memo[T]) CleanExpired() int { return m.lru.CleanExpired() }

func (m *Memo[T]) Size() int { return m.lru.Size() }
