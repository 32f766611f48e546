package fetch

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type entry struct {
	fetchedAt time.Time
	content   string
}

// Cache maps a URL to the content fetched from it. Entries older than the
// TTL are dropped on the next lookup; there is no background sweeper.
type Cache struct {
	items *gocache.Cache
	ttl   time.Duration
}

// NewCache creates an empty cache. A non-positive ttl disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the content stored for key if it is younger than the TTL at now.
func (c *Cache) Get(key string, now time.Time) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	v, ok := c.items.Get(key)
	if !ok {
		return "", false
	}
	e := v.(entry)
	if now.Sub(e.fetchedAt) >= c.ttl {
		c.items.Delete(key)
		return "", false
	}
	return e.content, true
}

// Set stores content for key as fetched at now.
func (c *Cache) Set(key, content string, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.items.Set(key, entry{fetchedAt: now, content: content}, gocache.NoExpiration)
}

// Len returns the number of stored entries, including stale ones not yet looked up.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.items.Flush()
}
