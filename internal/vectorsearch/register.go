package vectorsearch

import (
	"context"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/tools"
)

// adds the retriever factory under the default tool type
func Register(registry *tools.Registry, catalog Catalog) {
	registry.Register(config.DefaultToolType, func(ctx context.Context, tc config.ToolConfig) (tools.Tool, error) {
		var cfg Config
		if err := tc.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode retriever config: %w", err)
		}

		return New(ctx, cfg, catalog)
	})
}
