package portal

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultTTL is how long a cached action result stays valid.
const DefaultTTL = 5 * time.Minute

// Cache stores successful idempotent GET results keyed by action + params.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Put(key string, value json.RawMessage)
}

// CacheKey builds a canonical key for an action call. encoding/json sorts
// map keys at every nesting level, so parameter maps that are key-set-equal
// produce identical keys regardless of insertion order.
func CacheKey(action string, params map[string]any) string {
	if len(params) == 0 {
		return action + ":{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		// Unmarshalable params are never cacheable; an impossible key keeps
		// them from colliding with real entries.
		return action + ":!" + err.Error()
	}
	return action + ":" + string(b)
}

type cacheEntry struct {
	value    json.RawMessage
	storedAt time.Time
}

// MemoryCache is the default process-wide cache: unbounded, lazily evicted.
// Expired entries are treated as absent and overwritten on the next Put.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates a cache with the given TTL. A nil clock defaults
// to time.Now; tests inject a fake clock.
func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the stored value if it is still within TTL. A hit does not
// refresh the entry's timestamp.
func (c *MemoryCache) Get(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores a value with the current timestamp. Last writer wins.
func (c *MemoryCache) Put(key string, value json.RawMessage) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}
