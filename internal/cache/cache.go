// Package cache is a small key → value store with per-entry expiry. It knows
// nothing about HTTP; the API client decides what to memoize and for how long.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache stores JSON-encodable values under string keys. Get decodes into dst
// and reports whether a live entry was found.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Evict(ctx context.Context, keys ...string) error
}

// ErrInvalidTTL is returned by Set for a non-positive TTL.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")
