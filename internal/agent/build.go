package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/tools"
)

// everything needed to turn an agent config into a predictor
type Dependencies struct {
	Invoker  llm.Invoker
	Registry *tools.Registry
	// directory that relative worker config paths resolve against
	BaseDir string
}

// builds a function-calling agent, or a supervisor when the config has a
// supervisor block
func Build(ctx context.Context, cfg *config.AgentConfig, deps Dependencies) (Predictor, error) {
	if cfg.Supervisor != nil {
		return buildSupervisor(ctx, cfg.Supervisor, deps)
	}

	toolSet, err := deps.Registry.Build(ctx, cfg.Tools)
	if err != nil {
		return nil, err
	}

	model := llm.NewChatModel(deps.Invoker, cfg.LLM.EndpointName, cfg.LLM.Parameters)

	logger.Info("agent built",
		"llm_endpoint", cfg.LLM.EndpointName,
		"tools", toolSet.Len(),
	)

	return New(model, toolSet, cfg), nil
}

func buildSupervisor(ctx context.Context, cfg *config.SupervisorConfig, deps Dependencies) (*Supervisor, error) {
	workers := make([]Worker, 0, len(cfg.Agents))

	for _, a := range cfg.Agents {
		var predictor Predictor

		switch cfg.AgentLoadingMode {
		case config.LoadingModeModelServing:
			predictor = NewEndpointAgent(deps.Invoker, a.EndpointName)
		default:
			path := a.ConfigPath
			if !filepath.IsAbs(path) && deps.BaseDir != "" {
				path = filepath.Join(deps.BaseDir, path)
			}

			workerCfg, err := config.LoadAgentConfig(path)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", a.Name, err)
			}

			if workerCfg.Supervisor != nil {
				return nil, fmt.Errorf("worker %s: nested supervisors are not supported", a.Name)
			}

			predictor, err = Build(ctx, workerCfg, deps)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", a.Name, err)
			}
		}

		workers = append(workers, Worker{Name: a.Name, Description: a.Description, Agent: predictor})
	}

	model := llm.NewChatModel(deps.Invoker, cfg.LLMEndpointName, cfg.LLMParameters)

	return NewSupervisor(model, cfg, workers)
}
