// Package cache provides a TTL cache used for alert deduplication windows.
package cache

import "time"

// Cache is a key/value store with per-entry TTL.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration) bool
	Delete(key string)
	Clear()
	Close()
}
