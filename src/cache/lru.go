package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// LRU is a thread-safe least-recently-used cache whose entries expire after a
// fixed TTL. The zero capacity disables caching entirely.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	order    *list.List
	hits     uint64
	misses   uint64
}

type item[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// New creates a cache holding at most capacity entries, each living for ttl.
// A non-positive ttl keeps entries until they are evicted.
func New[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity < 0 {
		capacity = 0
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached value for key and whether it was present and fresh.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	it := elem.Value.(*item[V])
	if c.expired(it) {
		c.order.Remove(elem)
		delete(c.items, key)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return it.value, true
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRU[V]) Set(key string, value V) {
	if c == nil || c.capacity == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		it := elem.Value.(*item[V])
		it.value = value
		it.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&item[V]{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*item[V]).key)
	}
}

// Len reports the number of entries, expired ones included until they are touched.
func (c *LRU[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counters.
func (c *LRU[V]) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *LRU[V]) expired(it *item[V]) bool {
	return !it.expiresAt.IsZero() && c.now().After(it.expiresAt)
}

// Key derives a stable cache key for a tool call. Map arguments are encoded
// with sorted keys so equal argument sets hash identically.
func Key(tool string, args map[string]any) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(tool))))
	h.Write([]byte{0})
	if len(args) > 0 {
		// encoding/json sorts map keys.
		if b, err := json.Marshal(args); err == nil {
			h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
