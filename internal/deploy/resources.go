package deploy

import (
	"context"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/tools"
)

// LLM endpoints of the config plus the resources of its tools, in that
// order and without duplicates
func CollectResources(ctx context.Context, cfg *config.AgentConfig, toolSet *tools.Set) ([]tools.Resource, error) {
	var out []tools.Resource
	seen := make(map[tools.Resource]bool)

	add := func(r tools.Resource) {
		if r.Name == "" || seen[r] {
			return
		}
		seen[r] = true
		out = append(out, r)
	}

	if cfg.Supervisor != nil {
		add(tools.Resource{Type: tools.ResourceServingEndpoint, Name: cfg.Supervisor.LLMEndpointName})
		for _, a := range cfg.Supervisor.Agents {
			add(tools.Resource{Type: tools.ResourceServingEndpoint, Name: a.EndpointName})
		}
	} else {
		add(tools.Resource{Type: tools.ResourceServingEndpoint, Name: cfg.LLM.EndpointName})
	}

	deps, err := toolSet.ResourceDependencies(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range deps {
		add(r)
	}

	return out, nil
}
