// ABOUTME: Thread-safe TTL cache tracking applied stream event ids.
// ABOUTME: Makes event application idempotent across SSE reconnects and replays.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores the apply time and list element for a cached event id.
type cacheEntry struct {
	appliedAt time.Time
	element   *list.Element
}

// Cache remembers which stream event ids have already been applied so a
// replayed event mutates state at most once. Entries expire after a TTL and
// the cache is size-bounded; a doubly-linked list keeps insertion order for
// O(1) eviction of the oldest id.
type Cache struct {
	mu      sync.RWMutex
	applied map[string]*cacheEntry
	order   *list.List // event ids in apply order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates an event cache with the given TTL and maximum size. A
// background goroutine periodically removes expired ids; call Close when
// the cache is no longer needed.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		applied: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Seen atomically reports whether the event id was already applied within
// the TTL, marking it applied otherwise. The single operation avoids a
// check-then-mark race between concurrent deliveries of the same event.
func (c *Cache) Seen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.applied[eventID]
	if ok && time.Since(entry.appliedAt) < c.ttl {
		return true
	}

	c.markLocked(eventID)
	return false
}

// Len returns the number of ids currently tracked, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.applied)
}

// markLocked records an event id. Must be called with mu held.
func (c *Cache) markLocked(eventID string) {
	now := time.Now()

	if entry, exists := c.applied[eventID]; exists {
		entry.appliedAt = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.applied) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(eventID)
	c.applied[eventID] = &cacheEntry{
		appliedAt: now,
		element:   elem,
	}
}

// evictOldest removes the oldest tracked id. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	eventID, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.applied, eventID)
}

// cleanup periodically drops expired ids until Close is called.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for eventID, entry := range c.applied {
		if now.Sub(entry.appliedAt) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.applied, eventID)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
