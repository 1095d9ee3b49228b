package vectorsearch

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
)

const DefaultMetadataTTL = 10 * time.Minute

// caches index and table metadata; queries always go to the backend
type CachedCatalog struct {
	inner Catalog
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedCatalog(inner Catalog, c cache.Cache, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}

	return &CachedCatalog{inner: inner, cache: c, ttl: ttl}
}

func (c *CachedCatalog) GetIndex(ctx context.Context, name string) (*platform.IndexInfo, error) {
	var info platform.IndexInfo
	if c.lookup(ctx, "index:"+name, &info) {
		return &info, nil
	}

	fresh, err := c.inner.GetIndex(ctx, name)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "index:"+name, fresh)

	return fresh, nil
}

func (c *CachedCatalog) GetTable(ctx context.Context, fullName string) (*platform.TableInfo, error) {
	var info platform.TableInfo
	if c.lookup(ctx, "table:"+fullName, &info) {
		return &info, nil
	}

	fresh, err := c.inner.GetTable(ctx, fullName)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "table:"+fullName, fresh)

	return fresh, nil
}

func (c *CachedCatalog) QueryIndex(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
	return c.inner.QueryIndex(ctx, req)
}

// cache failures degrade to a miss
func (c *CachedCatalog) lookup(ctx context.Context, key string, out any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("metadata cache read failed", "key", key, "error", err)
		return false
	}

	if !ok {
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		logger.FromContext(ctx).Warn("discarding undecodable cache entry", "key", key, "error", err)
		return false
	}

	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		logger.FromContext(ctx).Warn("metadata cache write failed", "key", key, "error", err)
	}
}
