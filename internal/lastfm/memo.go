package lastfm

import (
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// memo remembers successful lookups. It holds at most size entries, evicting
// the least recently used, and forgets entries older than ttl.
type memo[V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

type memoEntry[V any] struct {
	value  V
	stored time.Time
}

func newMemo[V any](size int, ttl time.Duration) *memo[V] {
	return &memo[V]{cache: lru.New(size), ttl: ttl, now: time.Now}
}

func (m *memo[V]) get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	v, ok := m.cache.Get(key)
	if !ok {
		return zero, false
	}
	e := v.(memoEntry[V])
	if m.now().Sub(e.stored) >= m.ttl {
		m.cache.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (m *memo[V]) put(key string, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(key, memoEntry[V]{value: v, stored: m.now()})
}

func (m *memo[V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Len()
}
