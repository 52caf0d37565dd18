package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache wraps ristretto with the Cache interface.
type RistrettoCache struct {
	inner *ristretto.Cache
}

// NewRistretto creates a cache sized for small bookkeeping workloads
// (dedup windows, correlation state), not bulk data.
func NewRistretto() (*RistrettoCache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{inner: inner}, nil
}

// Get returns the value for a key if present and unexpired.
func (c *RistrettoCache) Get(key string) (any, bool) {
	value, found := c.inner.Get(key)
	if found {
		HitsTotal.Inc()
	} else {
		MissesTotal.Inc()
	}
	return value, found
}

// Set stores a value with a TTL. Ristretto admits asynchronously; callers
// needing read-after-write on the same key should treat a false return as
// a dropped write.
func (c *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	ok := c.inner.SetWithTTL(key, value, 1, ttl)
	if ok {
		c.inner.Wait()
		SetsTotal.Inc()
	}
	return ok
}

// Delete removes a key.
func (c *RistrettoCache) Delete(key string) {
	c.inner.Del(key)
}

// Clear drops every entry.
func (c *RistrettoCache) Clear() {
	c.inner.Clear()
}

// Close releases the cache's resources.
func (c *RistrettoCache) Close() {
	c.inner.Close()
}
