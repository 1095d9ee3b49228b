package tools

import "context"

const (
	ResourceVectorSearchIndex = "vector_search_index"
	ResourceServingEndpoint   = "serving_endpoint"
)

// platform resource an agent needs access to once deployed
type Resource struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// implemented by tools that depend on platform resources
type ResourceProvider interface {
	ResourceDependencies(ctx context.Context) ([]Resource, error)
}

// resources of every tool in the set, de-duplicated
func (s *Set) ResourceDependencies(ctx context.Context) ([]Resource, error) {
	var out []Resource
	seen := make(map[Resource]bool)

	for _, t := range s.All() {
		provider, ok := t.(ResourceProvider)
		if !ok {
			continue
		}

		resources, err := provider.ResourceDependencies(ctx)
		if err != nil {
			return nil, err
		}

		for _, r := range resources {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}

	return out, nil
}
