package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	// tool type used when a tools entry omits `type`
	DefaultToolType = "vector_search_retriever"

	defaultMaxToolIterations = 10
	defaultMaxWorkersCalled  = 5

	LoadingModeLocal        = "local"
	LoadingModeModelServing = "model_serving"
)

// reads, defaults and validates an agent YAML file
func LoadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config %s: %w", path, err)
	}

	cfg, err := ParseAgentConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid agent config %s: %w", path, err)
	}

	return cfg, nil
}

// parses agent YAML from memory
func ParseAgentConfig(data []byte) (*AgentConfig, error) {
	var cfg AgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AgentConfig) applyDefaults() {
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = defaultMaxToolIterations
	}

	for i := range c.Tools {
		if c.Tools[i].Type == "" {
			c.Tools[i].Type = DefaultToolType
		}
	}

	if c.Supervisor != nil {
		if c.Supervisor.MaxWorkersCalled <= 0 {
			c.Supervisor.MaxWorkersCalled = defaultMaxWorkersCalled
		}
		if c.Supervisor.AgentLoadingMode == "" {
			c.Supervisor.AgentLoadingMode = LoadingModeLocal
		}
	}
}

// checks the fields that can be checked without talking to the platform;
// every problem is reported, not just the first
func (c *AgentConfig) Validate() error {
	var result *multierror.Error

	if c.Supervisor == nil && c.LLM.EndpointName == "" {
		result = multierror.Append(result, fmt.Errorf("llm_config.llm_endpoint_name is required"))
	}

	seen := make(map[string]bool, len(c.Tools))
	for i, tool := range c.Tools {
		if tool.Name == "" {
			result = multierror.Append(result, fmt.Errorf("tools[%d]: name is required", i))
			continue
		}
		if seen[tool.Name] {
			result = multierror.Append(result, fmt.Errorf("tools[%d]: duplicate tool name %q", i, tool.Name))
		}
		seen[tool.Name] = true
	}

	if c.Supervisor != nil {
		for _, err := range c.Supervisor.validate() {
			result = multierror.Append(result, fmt.Errorf("supervisor: %w", err))
		}
	}

	return result.ErrorOrNil()
}

func (s *SupervisorConfig) validate() []error {
	var errs []error

	if s.LLMEndpointName == "" {
		errs = append(errs, fmt.Errorf("llm_endpoint_name is required"))
	}

	if s.AgentLoadingMode != LoadingModeLocal && s.AgentLoadingMode != LoadingModeModelServing {
		errs = append(errs, fmt.Errorf("agent_loading_mode must be %q or %q, got %q", LoadingModeLocal, LoadingModeModelServing, s.AgentLoadingMode))
	}

	if len(s.Agents) == 0 {
		errs = append(errs, fmt.Errorf("at least one supervised agent is required"))
	}

	for i, a := range s.Agents {
		if a.Name == "" || a.Description == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name and description are required", i))
		}
		if s.AgentLoadingMode == LoadingModeModelServing && a.EndpointName == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: endpoint_name is required in model_serving mode", i))
		}
		if s.AgentLoadingMode == LoadingModeLocal && a.ConfigPath == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: config_path is required in local mode", i))
		}
	}

	return errs
}

// keeps the whole node so the tool factory can decode type-specific fields
func (t *ToolConfig) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type string `yaml:"type"`
		Name string `yaml:"name"`
	}

	if err := node.Decode(&head); err != nil {
		return err
	}

	t.Type = head.Type
	t.Name = head.Name
	t.Spec = *node

	return nil
}

func (t ToolConfig) MarshalYAML() (any, error) {
	return &t.Spec, nil
}

// decodes the tool's own fields into out
func (t ToolConfig) Decode(out any) error {
	return t.Spec.Decode(out)
}

// serialises the config back to YAML (logged with the model)
func (c *AgentConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
