package cache

import (
	"context"
	"time"

	"codeberg.org/ragcookbook/server/internal/logger"
)

// two-level cache: a fast local tier in front of a shared one
type Tiered struct {
	l1 Cache
	l2 Cache
}

// l2 may be nil, in which case Tiered behaves like l1
func NewTiered(l1, l2 Cache) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, err := t.l1.Get(ctx, key); err == nil && ok {
		return value, true, nil
	}

	if t.l2 == nil {
		return nil, false, nil
	}

	value, ok, err := t.l2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	// populate L1 with the default ttl
	if err := t.l1.Set(ctx, key, value, 0); err != nil {
		logger.Warn("failed to populate local cache", "key", key, "error", err)
	}

	return value, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	if t.l2 == nil {
		return nil
	}

	return t.l2.Set(ctx, key, value, ttl)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	if err := t.l1.Delete(ctx, key); err != nil {
		return err
	}

	if t.l2 == nil {
		return nil
	}

	return t.l2.Delete(ctx, key)
}
