// Package cache provides a generic, thread-safe LRU cache with statistics and
// optional Prometheus metrics.
package cache

import (
	"github.com/c360/represent/errors"
)

// Cache is a bounded key/value store
type Cache[V any] interface {
	// Get returns the value and true if key is present, marking it recently used.
	Get(key string) (V, bool)

	// Set stores value under key. It reports true when a new entry was created.
	Set(key string, value V) (bool, error)

	// Delete removes key and reports whether it was present.
	Delete(key string) (bool, error)

	Clear() error
	Size() int

	// Keys lists keys from most to least recently used.
	Keys() []string

	Stats() *Statistics
}

// EvictCallback is called with an entry removed by Delete, Clear or eviction
type EvictCallback[V any] func(key string, value V)

// NewLRU creates a cache holding at most maxSize entries
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize < 1 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewLRU",
			"max size must be at least 1")
	}
	return newLRUCache(maxSize, applyOptions(options...))
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
