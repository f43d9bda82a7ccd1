// Package cache provides an in-memory LRU cache with TTL support.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// LRU is a size-bounded cache. Entries expire after their TTL and the least
// recently used entry is evicted when full. Safe for concurrent use.
type LRU[V any] struct {
	mu         sync.Mutex
	data       map[string]*node[V]
	maxSize    int
	defaultTTL time.Duration
	head       *node[V]
	tail       *node[V]
	stats      Stats
	now        func() time.Time
}

type node[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *node[V]
	next      *node[V]
}

// NewLRU creates a cache holding at most maxSize entries. A zero defaultTTL
// means entries never expire.
func NewLRU[V any](maxSize int, defaultTTL time.Duration) *LRU[V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRU[V]{
		data:       make(map[string]*node[V]),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		stats:      Stats{MaxSize: maxSize},
		now:        time.Now,
	}
}

// Get retrieves a value from the cache
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	n, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if !n.expiresAt.IsZero() && c.now().After(n.expiresAt) {
		c.remove(n)
		c.stats.Misses++
		return zero, false
	}

	c.moveToFront(n)
	c.stats.Hits++
	return n.value, true
}

// Set stores a value using the default TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with its own TTL.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if n, ok := c.data[key]; ok {
		n.value = value
		n.expiresAt = expiresAt
		c.moveToFront(n)
		return
	}

	if len(c.data) >= c.maxSize && c.tail != nil {
		c.remove(c.tail)
		c.stats.Evictions++
	}

	n := &node[V]{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(n)
	c.data[key] = n
}

// Invalidate removes a specific key from the cache
func (c *LRU[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.data[key]; ok {
		c.remove(n)
	}
}

// InvalidatePrefix removes every key starting with prefix.
func (c *LRU[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []*node[V]
	for key, n := range c.data {
		if strings.HasPrefix(key, prefix) {
			doomed = append(doomed, n)
		}
	}
	for _, n := range doomed {
		c.remove(n)
	}
	return len(doomed)
}

// Clear removes all entries and resets statistics.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*node[V])
	c.head, c.tail = nil, nil
	c.stats = Stats{MaxSize: c.maxSize}
}

// GetStats returns cache statistics
func (c *LRU[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

func (c *LRU[V]) addToFront(n *node[V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU[V]) moveToFront(n *node[V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.addToFront(n)
}

func (c *LRU[V]) unlink(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *LRU[V]) remove(n *node[V]) {
	c.unlink(n)
	delete(c.data, n.key)
}

// Key builds "<namespace>:<sha256>" from the JSON encoding of parts.
func Key(namespace string, parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", err
		}
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
