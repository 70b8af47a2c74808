// Package idempotency caches chat responses by client-supplied key so
// that network retries do not execute a command twice.
package idempotency

import (
	"sync"
	"time"
)

const (
	// TTL is how long a cached response can be replayed.
	TTL = 60 * time.Second
	// MaxEntries bounds the cache; the oldest entries are evicted
	// first when it overflows.
	MaxEntries = 1000
)

type entry struct {
	payload  []byte
	storedAt time.Time
}

// Cache is a bounded TTL cache of serialized responses. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Recall returns the response previously stored under key, if it is
// still fresh.
func (c *Cache) Recall(key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > TTL {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

// Remember stores payload under key and evicts expired entries. If the
// cache is still over capacity afterwards, the oldest entries go first.
func (c *Cache) Remember(key string, payload []byte) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{payload: payload, storedAt: c.now()}

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > TTL {
			delete(c.entries, k)
		}
	}
	for len(c.entries) > MaxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldest) {
				oldestKey = k
				oldest = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
