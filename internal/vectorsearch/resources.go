package vectorsearch

import (
	"context"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tools"
)

// the index plus the embedding endpoints it depends on
func (r *Retriever) ResourceDependencies(ctx context.Context) ([]tools.Resource, error) {
	deps := []tools.Resource{{Type: tools.ResourceVectorSearchIndex, Name: r.cfg.Index}}

	index, err := r.catalog.GetIndex(ctx, r.cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", r.cfg.Index, err)
	}

	if index.IndexType != platform.IndexTypeDeltaSync || index.DeltaSyncIndexSpec == nil {
		return deps, nil
	}

	for _, col := range index.DeltaSyncIndexSpec.EmbeddingSourceColumns {
		if col.EmbeddingModelEndpointName == "" {
			return nil, invalidf("Could not identify the embedding model endpoint resource for %s.  Please manually add the embedding model endpoint to `databricks_resources`.", r.cfg.Index)
		}

		deps = append(deps, tools.Resource{Type: tools.ResourceServingEndpoint, Name: col.EmbeddingModelEndpointName})
	}

	return deps, nil
}
