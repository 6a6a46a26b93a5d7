// Package cache provides a size-bounded LRU cache shared by the blob store
// and the chunk manager.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/annostore/resource"
)

// LRU is a least-recently-used cache bounded by the summed cost of its
// values. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[K]*list.Element
	evictList *list.List
	cost      func(V) int64
	onEvict   func(K, V)
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int64
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithCost sets the cost function. The default cost of a value is 1, which
// makes capacity an entry count.
func WithCost[K comparable, V any](fn func(V) int64) Option[K, V] {
	return func(c *LRU[K, V]) { c.cost = fn }
}

// WithOnEvict registers a callback invoked for each entry removed by
// eviction, Remove or Invalidate. It runs with the cache lock held and must
// not call back into the cache.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// WithResourceController charges the cost of cached values against rc.
func WithResourceController[K comparable, V any](rc *resource.Controller) Option[K, V] {
	return func(c *LRU[K, V]) { c.rc = rc }
}

// New creates an LRU with the given capacity.
func New[K comparable, V any](capacity int64, optFns ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		cost:      func(V) int64 { return 1 },
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Bytes is the cost function for byte-slice values.
func Bytes(b []byte) int64 { return int64(len(b)) }

// Get returns a cached value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Contains reports whether key is cached without touching recency or stats.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Set caches a value. It reports false if the value was not cached because
// it exceeds the capacity or the resource controller denied the memory.
func (c *LRU[K, V]) Set(key K, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cost := c.cost(v)
	if cost > c.capacity {
		return false
	}

	if ent, ok := c.items[key]; ok {
		e := ent.Value.(*entry[K, V])
		if cost > e.cost && !c.rc.TryAcquireMemory(cost-e.cost) {
			return false
		}
		if cost < e.cost {
			c.rc.ReleaseMemory(e.cost - cost)
		}
		c.size += cost - e.cost
		e.value, e.cost = v, cost
		c.evictList.MoveToFront(ent)
		c.evict()
		return true
	}

	// Evict locally first so released memory is available to the controller.
	for c.size+cost > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
	if !c.rc.TryAcquireMemory(cost) {
		return false
	}

	c.items[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: v, cost: cost})
	c.size += cost
	return true
}

// Remove drops key. It reports whether the key was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
		return true
	}
	return false
}

// Invalidate removes entries matching the predicate.
func (c *LRU[K, V]) Invalidate(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Purge removes every entry.
func (c *LRU[K, V]) Purge() {
	c.Invalidate(func(K) bool { return true })
}

func (c *LRU[K, V]) evict() {
	for c.size > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			return
		}
		c.removeElement(back)
	}
}

func (c *LRU[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.items, kv.key)
	c.size -= kv.cost
	c.rc.ReleaseMemory(kv.cost)
	if c.onEvict != nil {
		c.onEvict(kv.key, kv.value)
	}
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the summed cost of cached values.
func (c *LRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counts.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
