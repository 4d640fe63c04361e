package compliance

import (
	"container/list"
	"sync"
)

// DefaultCacheCapacity bounds the validation cache within one session.
const DefaultCacheCapacity = 256

// CacheKey is the content address of a validation result: the upload's name,
// byte size and last-modified timestamp (unix milliseconds).
type CacheKey struct {
	Filename     string
	SizeBytes    int64
	LastModified int64
}

type cacheEntry struct {
	key    CacheKey
	result *ValidationResult
}

// ValidationCache is a bounded, mutex-guarded LRU map from upload identity to
// validation result. It is owned and cleared by the calling session; the
// validator itself holds no state.
type ValidationCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[CacheKey]*list.Element
}

// NewValidationCache creates a cache bounded to capacity entries. A
// non-positive capacity falls back to the default.
func NewValidationCache(capacity int) *ValidationCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ValidationCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[CacheKey]*list.Element),
	}
}

// Get returns the cached result for key and marks it most recently used.
func (c *ValidationCache) Get(key CacheKey) (*ValidationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).result, true
}

// Put stores a result for key, evicting the least recently used entry when
// the cache is full.
func (c *ValidationCache) Put(key CacheKey, result *ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).result = result
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{key: key, result: result})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *ValidationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *ValidationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[CacheKey]*list.Element)
}
