package cache

import (
	"context"
	"time"
)

// byte-valued cache shared by the in-process and redis tiers
type Cache interface {
	// returns the value and whether it was present and unexpired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// stores value; a non-positive ttl uses the cache default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
