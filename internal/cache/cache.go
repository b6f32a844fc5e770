// Package cache provides short-lived response caching for the analytics
// connector, whose endpoints are shared across sources and change slowly.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for response caching.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a request URL.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "chatpulse:v1:" + hex.EncodeToString(hash[:])
}
