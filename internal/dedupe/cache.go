// ABOUTME: TTL window of recently handled gateway event keys.
// ABOUTME: Lets the deletion auditor drop a replayed delete event instead of alerting twice.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key    string
	seenAt time.Time
}

// Cache remembers keys for ttl, holding at most maxSize of them. When full,
// the key seen longest ago is forgotten first.
type Cache struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = oldest
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done   chan struct{}
	closed bool
}

// New creates a cache and starts its expiry loop, which sweeps every sweepEvery.
func New(ttl time.Duration, maxSize int) *Cache {
	return newCache(ttl, maxSize, time.Minute)
}

func newCache(ttl time.Duration, maxSize int, sweepEvery time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.expireLoop(sweepEvery)
	return c
}

// CheckAndMark reports whether key was already seen within the TTL. A new or
// expired key is recorded and false is returned. Check and record happen
// under one lock.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		if now.Sub(e.seenAt) < c.ttl {
			return true
		}
		e.seenAt = now
		c.order.MoveToBack(el)
		return false
	}

	if len(c.index) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			delete(c.index, oldest.Value.(*entry).key)
			c.order.Remove(oldest)
		}
	}
	c.index[key] = c.order.PushBack(&entry{key: key, seenAt: now})
	return false
}

// Forget drops key so its next sighting counts as new.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		delete(c.index, key)
		c.order.Remove(el)
	}
}

// Len returns the number of remembered keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *Cache) expireLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.expire()
		case <-c.done:
			return
		}
	}
}

// expire drops keys from the front while they are past the TTL. Entries are
// ordered by seenAt, so the walk stops at the first live one.
func (c *Cache) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		e := el.Value.(*entry)
		if now.Sub(e.seenAt) < c.ttl {
			return
		}
		delete(c.index, e.key)
		c.order.Remove(el)
	}
}

// Close stops the expiry loop. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
