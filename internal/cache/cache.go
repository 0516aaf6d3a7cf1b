package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo is a write-once-per-key lookup cache. Concurrent misses on the same
// key share one computation; failed computations are not stored.
type Memo[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
	group  singleflight.Group
	keyFn  func(K) string
}

// NewMemo creates a Memo. keyFn renders a key for the singleflight group.
func NewMemo[K comparable, V any](keyFn func(K) string) *Memo[K, V] {
	return &Memo[K, V]{
		values: make(map[K]V),
		keyFn:  keyFn,
	}
}

// Get retrieves a cached value
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// GetOrLoad returns the cached value or computes it with load.
func (m *Memo[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	res, err, _ := m.group.Do(m.keyFn(key), func() (any, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		m.mu.Lock()
		if existing, ok := m.values[key]; ok {
			v = existing
		} else {
			m.values[key] = v
		}
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len reports the number of stored keys.
func (m *Memo[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Reset clears all cached values
func (m *Memo[K, V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[K]V)
}
