// Package cache provides the dashboard's response cache: analysis payloads
// are expensive to assemble, so rendered responses are kept for a TTL.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSize = 64

// Cache is a TTL-bounded LRU of rendered response payloads. Safe for
// concurrent use.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// New creates a cache holding up to size entries for at most ttl each.
// size <= 0 falls back to a sensible default.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached payload for key, if present and fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores a payload under key.
func (c *Cache) Set(key string, value []byte) {
	c.lru.Add(key, value)
}

// Clear drops every entry, forcing the next request to rebuild.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
