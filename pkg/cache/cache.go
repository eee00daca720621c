package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache with LRU eviction, safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]*entry[V]
	order    *list.List // MRU at front, LRU at back
	maxItems int        // 0 = unlimited
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type entry[V any] struct {
	key  string
	val  V
	exp  time.Time // zero = no expiry
	elem *list.Element
}

// New returns a cache holding at most maxItems entries, each living for ttl
// (ttl<=0 means no expiry). When janitor > 0 a goroutine sweeps expired
// entries at that interval until Close is called.
func New[V any](maxItems int, ttl, janitor time.Duration) *Cache[V] {
	if maxItems < 0 {
		maxItems = 0
	}
	c := &Cache[V]{
		items:    make(map[string]*entry[V]),
		order:    list.New(),
		maxItems: maxItems,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if janitor > 0 {
		go c.janitor(janitor)
	}
	return c
}

// Get returns the value for key and whether it exists and has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.expired(e) {
		c.removeNoLock(key)
		return zero, false
	}
	c.order.MoveToFront(e.elem)
	return e.val, true
}

// Set stores v under key and refreshes its TTL.
func (c *Cache[V]) Set(key string, v V) {
	if c == nil {
		return
	}
	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		e.val = v
		e.exp = exp
		c.order.MoveToFront(e.elem)
		return
	}
	e := &entry[V]{key: key, val: v, exp: exp}
	e.elem = c.order.PushFront(e)
	c.items[key] = e
	for c.maxItems > 0 && c.order.Len() > c.maxItems {
		c.evictLRUNoLock()
	}
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.removeNoLock(key)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the janitor goroutine. The cache stays usable.
func (c *Cache[V]) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.sweep()
		}
	}
}

func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if c.expired(e) {
			c.removeNoLock(k)
		}
	}
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return !e.exp.IsZero() && c.now().After(e.exp)
}

// removeNoLock removes key from map/list; caller must hold c.mu.
func (c *Cache[V]) removeNoLock(key string) {
	if e, ok := c.items[key]; ok {
		c.order.Remove(e.elem)
		delete(c.items, key)
	}
}

// evictLRUNoLock removes one LRU entry; caller must hold c.mu.
func (c *Cache[V]) evictLRUNoLock() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	if e, ok := back.Value.(*entry[V]); ok {
		delete(c.items, e.key)
	}
}
