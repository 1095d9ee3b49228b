package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

// runs one deployment step per subcommand
type CLI struct {
	platform *platform.Client
	deployer *deploy.Deployer
	flags    config.DeployFlags
}

// logs the agent config, data pipeline config and resources
func (c *CLI) Log(ctx context.Context) error {
	info, err := c.logAgent(ctx)
	if err != nil {
		return err
	}

	return printJSON(info)
}

func (c *CLI) logAgent(ctx context.Context) (*deploy.ModelInfo, error) {
	agentCfg, err := config.LoadAgentConfig(c.flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	// building the agent validates every retriever against its index
	registry := tools.NewRegistry()
	vectorsearch.Register(registry, c.platform)

	predictor, err := agent.Build(ctx, agentCfg, agent.Dependencies{
		Invoker:  c.platform,
		Registry: registry,
		BaseDir:  filepath.Dir(c.flags.ConfigPath),
	})
	if err != nil {
		return nil, fmt.Errorf("agent config does not build: %w", err)
	}

	return c.logBuilt(ctx, agentCfg, predictor)
}

// smoke tests predictor with the config's input example, then logs it
func (c *CLI) logBuilt(ctx context.Context, agentCfg *config.AgentConfig, predictor agent.Predictor) (*deploy.ModelInfo, error) {
	reply, err := agent.SmokeTest(ctx, predictor, agentCfg.InputExample)
	if err != nil {
		return nil, err
	}

	logger.Info("input example answered", "chars", len(reply.Content))

	// supervisors carry no tools of their own
	toolSet := agent.NewHolder(predictor).Tools()

	resources, err := deploy.CollectResources(ctx, agentCfg, toolSet)
	if err != nil {
		return nil, err
	}

	pipeline, err := loadDataPipelineConfig(c.flags.DataPipelineConfig)
	if err != nil {
		return nil, err
	}

	return c.deployer.LogAgent(ctx, deploy.LogRequest{
		RunName:            c.flags.RunName,
		AgentConfig:        agentCfg,
		DataPipelineConfig: pipeline,
		Resources:          resources,
	})
}

// registers -model-uri as a new version of -model
func (c *CLI) Register(ctx context.Context) error {
	if err := c.require("model-uri", c.flags.ModelURI, "model", c.flags.ModelName); err != nil {
		return err
	}

	version, err := c.deployer.Register(ctx, c.flags.ModelURI, c.flags.ModelName)
	if err != nil {
		return err
	}

	return printJSON(version)
}

// serves -model at -version and stores the reviewer instructions
func (c *CLI) Deploy(ctx context.Context) error {
	if err := c.require("model", c.flags.ModelName, "version", c.flags.Version); err != nil {
		return err
	}

	d, err := c.deploy(ctx, c.flags.Version)
	if err != nil {
		return err
	}

	if c.flags.Watch {
		if _, err := c.waitUntilReady(ctx, *d); err != nil {
			return err
		}
	}

	return printJSON(d)
}

func (c *CLI) deploy(ctx context.Context, version string) (*deploy.Deployment, error) {
	d, err := c.deployer.Deploy(ctx, c.flags.ModelName, version)
	if err != nil {
		return nil, err
	}

	if err := c.deployer.SetReviewInstructions(ctx, c.flags.ModelName, deploy.ReviewInstructions(c.flags.AppName)); err != nil {
		return nil, fmt.Errorf("failed to set review instructions: %w", err)
	}

	return d, nil
}

// blocks until the endpoint of -model (or -endpoint) is ready
func (c *CLI) Wait(ctx context.Context) error {
	d := deploy.Deployment{ModelName: c.flags.ModelName, EndpointName: c.flags.Endpoint}

	if d.EndpointName == "" {
		if err := c.require("model", c.flags.ModelName); err != nil {
			return err
		}

		found, err := c.deployer.FindDeployment(ctx, c.flags.ModelName)
		if err != nil {
			return err
		}

		d = *found
	}

	ep, err := c.waitUntilReady(ctx, d)
	if err != nil {
		return err
	}

	logger.Info("endpoint ready", "endpoint", ep.Name)

	return nil
}

// grants -users CAN_QUERY on the endpoint of -model
func (c *CLI) Grant(ctx context.Context) error {
	if err := c.require("model", c.flags.ModelName); err != nil {
		return err
	}

	if err := c.deployer.SetPermissions(ctx, c.flags.ModelName, c.flags.Users, platform.PermissionCanQuery); err != nil {
		return err
	}

	logger.Info("permissions granted", "model", c.flags.ModelName, "users", len(c.flags.Users))

	return nil
}

// prints the deployment serving -model
func (c *CLI) Find(ctx context.Context) error {
	if err := c.require("model", c.flags.ModelName); err != nil {
		return err
	}

	d, err := c.deployer.FindDeployment(ctx, c.flags.ModelName)
	if err != nil {
		return err
	}

	return printJSON(d)
}

// log -> register -> deploy -> wait -> grant
func (c *CLI) All(ctx context.Context) error {
	if err := c.require("model", c.flags.ModelName); err != nil {
		return err
	}

	info, err := c.logAgent(ctx)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	version, err := c.deployer.Register(ctx, info.ModelURI, c.flags.ModelName)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	d, err := c.deploy(ctx, version.Version)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}

	if _, err := c.waitUntilReady(ctx, *d); err != nil {
		return fmt.Errorf("wait: %w", err)
	}

	if len(c.flags.Users) > 0 {
		if err := c.deployer.SetPermissions(ctx, c.flags.ModelName, c.flags.Users, platform.PermissionCanQuery); err != nil {
			return fmt.Errorf("grant: %w", err)
		}
	}

	return printJSON(d)
}

// checks flag name/value pairs
func (c *CLI) require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("-%s is required", pairs[i])
		}
	}

	return nil
}

// YAML or JSON file written by the data pipeline (the ingester's
// -pipeline-out); an empty path logs no pipeline config
func loadDataPipelineConfig(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data pipeline config: %w", err)
	}

	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse data pipeline config %s: %w", path, err)
	}

	if out == nil {
		out = map[string]any{}
	}

	return out, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
