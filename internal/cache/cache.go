package cache

import (
	"sync"
	"time"
)

// HitRecorder receives cache hit and miss events
type HitRecorder interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// item represents a cached value with expiration
type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i *item[V]) expired(now time.Time) bool {
	return now.After(i.expiresAt)
}

// Cache provides thread-safe caching with TTL
type Cache[V any] struct {
	mu       sync.RWMutex
	items    map[string]*item[V]
	ttl      time.Duration
	recorder HitRecorder
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// New creates a cache with the given TTL and starts the background sweeper.
// recorder may be nil.
func New[V any](ttl time.Duration, recorder HitRecorder) *Cache[V] {
	c := &Cache[V]{
		items:    make(map[string]*item[V]),
		ttl:      ttl,
		recorder: recorder,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go c.cleanup(sweepInterval(ttl))

	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return time.Minute
	}
	if ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

// cleanup removes expired items periodically
func (c *Cache[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

// Purge drops every expired entry
func (c *Cache[V]) Purge() {
	now := c.now()
	c.mu.Lock()
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

// Get retrieves a live item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || it.expired(c.now()) {
		if c.recorder != nil {
			c.recorder.IncrementCacheMiss()
		}
		var zero V
		return zero, false
	}

	if c.recorder != nil {
		c.recorder.IncrementCacheHit()
	}
	return it.value, true
}

// Set stores an item in the cache
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &item[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item[V])
}

func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the sweeper. The cache stays usable.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Stats returns cache statistics
func (c *Cache[V]) Stats() map[string]interface{} {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, it := range c.items {
		if it.expired(now) {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}
