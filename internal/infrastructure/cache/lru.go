package cache

import (
	"container/list"
	"sync"

	"github.com/shelfsense/backend/internal/domain"
)

// lruEntry is a single cached key/value pair
type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a thread-safe bounded cache that evicts the least recently used
// entry once capacity is reached.
type LRU[K comparable, V any] struct {
	capacity int
	order    *list.List // front is most recently used
	items    map[K]*list.Element
	onEvict  func(key K, value V)
	mutex    sync.Mutex
}

// NewLRU creates a cache holding at most capacity entries (minimum 1)
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// OnEvict registers a callback invoked, under the cache lock, for every
// entry pushed out by capacity.
func (c *LRU[K, V]) OnEvict(fn func(key K, value V)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onEvict = fn
}

// Get returns the value for key and marks it most recently used
func (c *LRU[K, V]) Get(key K) (V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, exists := c.items[key]
	if !exists {
		var zero V
		return zero, domain.ErrCacheMiss
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, nil
}

// Set stores value under key as the most recently used entry, evicting the
// least recently used one when full. It reports whether an eviction happened.
func (c *LRU[K, V]) Set(key K, value V) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, exists := c.items[key]; exists {
		elem.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(elem)
		return false
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	if c.order.Len() <= c.capacity {
		return false
	}

	oldest := c.order.Back()
	entry := oldest.Value.(*lruEntry[K, V])
	c.order.Remove(oldest)
	delete(c.items, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
	return true
}

// Delete removes key from the cache
func (c *LRU[K, V]) Delete(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, exists := c.items[key]; exists {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// Keys returns the cached keys from most to least recently used
func (c *LRU[K, V]) Keys() []K {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Size returns the current number of entries
func (c *LRU[K, V]) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Clear removes all entries
func (c *LRU[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}
