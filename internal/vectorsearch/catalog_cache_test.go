package vectorsearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cache that always fails, to check the catalog degrades to the backend
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}

func (failingCache) Delete(context.Context, string) error {
	return errors.New("redis down")
}

func TestCachedCatalog_ServesMetadataFromCache(t *testing.T) {
	inner := &mockCatalog{}
	catalog := NewCachedCatalog(inner, cache.NewLRU(16, time.Minute), 0)

	first, err := catalog.GetIndex(context.Background(), testIndex)
	require.NoError(t, err)

	second, err := catalog.GetIndex(context.Background(), testIndex)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.getIndexCalls)
	assert.Equal(t, first, second)
	assert.Equal(t, testTable, second.DeltaSyncIndexSpec.SourceTable)
}

func TestCachedCatalog_TableAndQuery(t *testing.T) {
	tableCalls := 0
	queries := 0
	inner := &mockCatalog{
		getTableFunc: func(context.Context, string) (*platform.TableInfo, error) {
			tableCalls++
			return sourceTable(), nil
		},
		queryIndexFunc: func(context.Context, platform.QueryRequest) (*platform.QueryResponse, error) {
			queries++
			return queryResponse(), nil
		},
	}
	catalog := NewCachedCatalog(inner, cache.NewLRU(16, time.Minute), time.Minute)

	for range 3 {
		table, err := catalog.GetTable(context.Background(), testTable)
		require.NoError(t, err)
		assert.Len(t, table.Columns, 5)

		_, err = catalog.QueryIndex(context.Background(), platform.QueryRequest{IndexName: testIndex})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, tableCalls)
	assert.Equal(t, 3, queries)
}

func TestCachedCatalog_ErrorsAreNotCached(t *testing.T) {
	inner := &mockCatalog{getIndexFunc: notFound}
	catalog := NewCachedCatalog(inner, cache.NewLRU(16, time.Minute), time.Minute)

	_, err := catalog.GetIndex(context.Background(), testIndex)
	assert.True(t, platform.IsNotFound(err))

	inner.getIndexFunc = nil
	index, err := catalog.GetIndex(context.Background(), testIndex)
	require.NoError(t, err)
	assert.Equal(t, testIndex, index.Name)
	assert.Equal(t, 2, inner.getIndexCalls)
}

func TestCachedCatalog_CacheFailureFallsThrough(t *testing.T) {
	inner := &mockCatalog{}
	catalog := NewCachedCatalog(inner, failingCache{}, time.Minute)

	for range 2 {
		index, err := catalog.GetIndex(context.Background(), testIndex)
		require.NoError(t, err)
		assert.Equal(t, "chunk_id", index.PrimaryKey)
	}

	assert.Equal(t, 2, inner.getIndexCalls)
}
