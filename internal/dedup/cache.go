// Package dedup provides the bounded duplicate-suppression guard for
// at-least-once event redelivery.
package dedup

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache remembers recently processed event IDs so that redelivered
// duplicates are dropped before they reach aggregation. It is a true LRU
// with a hard capacity; IDs older than the retention window fall out and
// may be counted again, which the additive-upsert store tolerates as the
// accepted at-least-once contract.
type Cache struct {
	lru *lru.Cache[string, struct{}]
}

// NewCache creates a guard holding at most capacity event IDs.
func NewCache(capacity int) (*Cache, error) {
	l, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Contains reports whether the event ID was seen within the retention
// window, refreshing its recency.
func (c *Cache) Contains(id string) bool {
	_, ok := c.lru.Get(id)
	return ok
}

// Mark records the event ID as seen.
func (c *Cache) Mark(id string) {
	c.lru.Add(id, struct{}{})
}

// Len returns the number of IDs currently retained.
func (c *Cache) Len() int {
	return c.lru.Len()
}
