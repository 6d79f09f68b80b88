package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity is used when a constructor receives a non-positive
// capacity.
const DefaultCapacity = 100

// cleanupInterval is how often the janitor sweeps expired entries.
const cleanupInterval = time.Minute

// cacheItem is a single resident entry.
type cacheItem struct {
	key       string
	value     any
	expiresAt time.Time
}

// MemoryCache is a bounded in-memory cache with per-entry TTL and
// access-order LRU eviction. All façades share one instance.
type MemoryCache struct {
	capacity int
	items    map[string]*list.Element
	lru      *list.List
	onEvict  func(key string)

	mu        sync.Mutex
	stopCh    chan struct{}
	closeOnce sync.Once
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a store holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		stopCh:   make(chan struct{}),
	}

	go c.janitor()

	return c
}

// OnEvict registers a callback invoked when a capacity eviction drops
// an entry. Expiry, Delete and Clear do not fire it. The callback runs
// with the store lock held and must not call back into the cache.
// Register before the store takes traffic.
func (c *MemoryCache) OnEvict(fn func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value and promotes it to most recently used.
// An entry past its deadline is removed and reported as a miss.
func (c *MemoryCache) Get(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, ErrNotFound
	}

	item := element.Value.(*cacheItem)
	if time.Now().After(item.expiresAt) {
		c.removeLocked(key)
		return nil, ErrNotFound
	}

	c.lru.MoveToFront(element)
	return item.value, nil
}

// Set stores a value. An existing key is updated in place and
// promoted. A new key inserted at capacity evicts the least recently
// used entry first, so the store never exceeds its capacity.
// A non-positive TTL means the value is already expired: nothing is
// stored and any resident entry under the key is dropped.
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.removeLocked(key)
		return nil
	}

	expiresAt := time.Now().Add(ttl)

	if element, ok := c.items[key]; ok {
		item := element.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expiresAt
		c.lru.MoveToFront(element)
		return nil
	}

	if c.lru.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.lru.PushFront(&cacheItem{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})

	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
	return nil
}

// Len returns the number of resident entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *MemoryCache) Capacity() int {
	return c.capacity
}

// Close stops the janitor. Safe to call more than once.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
	return nil
}

// removeLocked removes an entry. Caller must hold the lock.
func (c *MemoryCache) removeLocked(key string) {
	if element, ok := c.items[key]; ok {
		c.lru.Remove(element)
		delete(c.items, key)
	}
}

// evictOldest removes the least recently used entry. Caller must hold
// the lock.
func (c *MemoryCache) evictOldest() {
	element := c.lru.Back()
	if element == nil {
		return
	}

	key := element.Value.(*cacheItem).key
	c.removeLocked(key)
	if c.onEvict != nil {
		c.onEvict(key)
	}
}

// janitor periodically prunes expired entries so long-idle keys do
// not pin memory until their next access.
func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired prunes every entry past its deadline.
func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := make([]string, 0)

	for key, element := range c.items {
		if now.After(element.Value.(*cacheItem).expiresAt) {
			expired = append(expired, key)
		}
	}

	for _, key := range expired {
		c.removeLocked(key)
	}
}
