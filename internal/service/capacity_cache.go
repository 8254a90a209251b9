package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Remaining-capacity reads may be stale by one write, so they are served
// from a short-lived cache that capacity-affecting writes invalidate.
const (
	capacityCacheTTL     = 2 * time.Second
	capacityCacheCleanup = time.Minute
)

// capacityEntry wraps the nilable remaining value for cache storage.
type capacityEntry struct {
	remaining *int
}

// CapacityCache caches remaining-capacity reads per material. One instance is
// shared between the claim and registry services: claim mutations and
// organizer-side material mutations must bust the same entries, otherwise a
// capacity change or material removal stays hidden until the TTL expires.
type CapacityCache struct {
	cache *gocache.Cache
}

// NewCapacityCache constructs an empty CapacityCache.
func NewCapacityCache() *CapacityCache {
	return &CapacityCache{cache: gocache.New(capacityCacheTTL, capacityCacheCleanup)}
}

func (c *CapacityCache) get(materialID string) (*int, bool) {
	v, ok := c.cache.Get(materialID)
	if !ok {
		return nil, false
	}
	entry, ok := v.(capacityEntry)
	if !ok {
		return nil, false
	}
	return entry.remaining, true
}

func (c *CapacityCache) set(materialID string, remaining *int) {
	c.cache.Set(materialID, capacityEntry{remaining: remaining}, gocache.DefaultExpiration)
}

// Invalidate drops the entry for one material.
func (c *CapacityCache) Invalidate(materialID string) {
	c.cache.Delete(materialID)
}

// Reset drops every entry. Used when an event's whole material list is
// replaced and the affected material IDs are gone.
func (c *CapacityCache) Reset() {
	c.cache.Flush()
}
