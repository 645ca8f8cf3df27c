package cache

import (
	"log/slog"
	"sync"
	"time"
)

// entry is a cached value with its expiration time
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache implements a thread-safe cache whose entries expire after a
// fixed TTL. A background goroutine sweeps expired entries.
type TTLCache struct {
	items         map[string]entry
	mutex         sync.RWMutex
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// NewTTLCache creates a TTL cache with the given TTL and cleanup interval
func NewTTLCache(ttl, cleanupInterval time.Duration) *TTLCache {
	c := &TTLCache{
		items:       make(map[string]entry),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	c.cleanupTicker = time.NewTicker(cleanupInterval)
	go c.cleanupExpiredEntries()

	slog.Debug("TTL cache initialized",
		"ttl", ttl.String(),
		"cleanup_interval", cleanupInterval.String())

	return c
}

// Set stores a value under key until the TTL elapses
func (c *TTLCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value if it exists and has not expired
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Delete removes a specific key from the cache
func (c *TTLCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Size returns the current number of items, including expired ones not
// yet swept
func (c *TTLCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Stop terminates the cleanup goroutine
func (c *TTLCache) Stop() {
	c.cleanupTicker.Stop()
	close(c.stopCleanup)
}

func (c *TTLCache) cleanupExpiredEntries() {
	for {
		select {
		case <-c.cleanupTicker.C:
			now := time.Now()
			c.mutex.Lock()
			for key, e := range c.items {
				if now.After(e.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}
