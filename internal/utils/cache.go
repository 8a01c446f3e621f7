package utils

import (
	"container/list"
	"sync"
	"time"
)

// CacheEntry represents an entry in the cache with TTL
type CacheEntry[V any] struct {
	Key       string
	Value     V
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired
func (e *CacheEntry[V]) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// SmartCache is an LRU cache with TTL support. Entries may also carry their
// own deadline, which wins when it comes before the TTL.
type SmartCache[V any] struct {
	maxSize   int
	ttl       time.Duration
	items     map[string]*list.Element
	lruList   *list.List
	mu        sync.RWMutex
	hits      int64
	misses    int64
	evictions int64
}

// NewSmartCache creates a new cache with LRU eviction and TTL. A zero ttl
// keeps entries until they are evicted.
func NewSmartCache[V any](maxSize int, ttl time.Duration) *SmartCache[V] {
	return &SmartCache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lruList: list.New(),
	}
}

// Get retrieves a value from the cache
func (c *SmartCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	elem, exists := c.items[key]
	if !exists {
		c.misses++
		return zero, false
	}

	entry := elem.Value.(*CacheEntry[V])
	if entry.IsExpired(time.Now()) {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}

	c.lruList.MoveToFront(elem)
	c.hits++

	return entry.Value, true
}

// Set adds or updates a value that expires after the cache TTL
func (c *SmartCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(key, value, c.ttlDeadline(time.Now()))
}

// SetUntil adds or updates a value that expires at until or after the cache
// TTL, whichever comes first
func (c *SmartCache[V]) SetUntil(key string, value V, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.ttlDeadline(time.Now())
	if expiresAt.IsZero() || until.Before(expiresAt) {
		expiresAt = until
	}
	c.setLocked(key, value, expiresAt)
}

func (c *SmartCache[V]) ttlDeadline(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// setLocked must be called with the lock held
func (c *SmartCache[V]) setLocked(key string, value V, expiresAt time.Time) {
	if elem, exists := c.items[key]; exists {
		entry := elem.Value.(*CacheEntry[V])
		entry.Value = value
		entry.ExpiresAt = expiresAt
		c.lruList.MoveToFront(elem)
		return
	}

	elem := c.lruList.PushFront(&CacheEntry[V]{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
	})
	c.items[key] = elem

	if c.lruList.Len() > c.maxSize {
		c.evictOldestLocked()
	}
}

// Stats returns cache statistics
func (c *SmartCache[V]) Stats() (hits, misses, evictions int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, c.evictions, c.lruList.Len()
}

// HitRate returns the cache hit rate (0.0 to 1.0)
func (c *SmartCache[V]) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0.0
	}
	return float64(c.hits) / float64(total)
}

// CleanupExpired removes all expired entries
func (c *SmartCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, elem := range c.items {
		if elem.Value.(*CacheEntry[V]).IsExpired(now) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// removeLocked removes an entry (must be called with lock held)
func (c *SmartCache[V]) removeLocked(key string) {
	if elem, exists := c.items[key]; exists {
		c.lruList.Remove(elem)
		delete(c.items, key)
	}
}

// evictOldestLocked removes the least recently used entry (must be called with lock held)
func (c *SmartCache[V]) evictOldestLocked() {
	elem := c.lruList.Back()
	if elem != nil {
		c.removeLocked(elem.Value.(*CacheEntry[V]).Key)
		c.evictions++
	}
}

// StartCleanupWorker removes expired entries every interval until stop is closed.
// It blocks, so run it in its own goroutine.
func (c *SmartCache[V]) StartCleanupWorker(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stop:
			return
		}
	}
}
