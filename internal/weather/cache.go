package weather

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedLookup memoizes successful lookups per city for a bounded time.
type CachedLookup struct {
	next  Lookup
	cache *expirable.LRU[string, Snapshot]
}

// NewCachedLookup wraps next with an expiring LRU. A ttl of zero or less
// disables caching and returns next unchanged.
func NewCachedLookup(next Lookup, size int, ttl time.Duration) Lookup {
	if ttl <= 0 {
		return next
	}
	if size <= 0 {
		size = 256
	}
	return &CachedLookup{
		next:  next,
		cache: expirable.NewLRU[string, Snapshot](size, nil, ttl),
	}
}

// Current returns a cached snapshot when one is fresh, otherwise delegates.
// Failed lookups are never cached.
func (c *CachedLookup) Current(ctx context.Context, city string) (Snapshot, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	if snap, ok := c.cache.Get(key); ok {
		return snap, nil
	}
	snap, err := c.next.Current(ctx, city)
	if err != nil {
		return snap, err
	}
	c.cache.Add(key, snap)
	return snap, nil
}
