package tools

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"codeberg.org/ragcookbook/server/internal/config"
	"golang.org/x/sync/errgroup"
)

// builds a tool from its YAML configuration
type Factory func(ctx context.Context, cfg config.ToolConfig) (Tool, error)

// tool factories keyed by config `type`
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(toolType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[toolType] = factory
}

func (r *Registry) Has(toolType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[toolType]
	return ok
}

// registered types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

func (r *Registry) Create(ctx context.Context, cfg config.ToolConfig) (Tool, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownTypeError{Type: cfg.Type}
	}

	return factory(ctx, cfg)
}

// builds every configured tool concurrently, keeping config order
func (r *Registry) Build(ctx context.Context, configs []config.ToolConfig) (*Set, error) {
	built := make([]Tool, len(configs))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		eg.Go(func() error {
			tool, err := r.Create(egCtx, cfg)
			if err != nil {
				return fmt.Errorf("tool %q: %w", cfg.Name, err)
			}

			built[i] = tool
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return NewSet(built...)
}
