package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// process-level settings loaded from the environment
type Config struct {
	Host              string // workspace URL, e.g. https://adb-123.azuredatabricks.net
	Token             string
	Environment       string
	Port              string
	AgentConfigPath   string
	RedisURL          string // optional, enables the shared metadata cache
	DatabaseURL       string // optional, enables the pgvector backend
	JWTSecret         string // optional, enables bearer auth on the API
	RateLimit         string // ulule formatted, e.g. "120-M"
	PlatformRPS       float64
	CORSOrigins       []string
	EmbeddingEndpoint string // vectorizes queries against DatabaseURL
	OTLPEndpoint      string // optional OTLP/HTTP collector
	TraceExperiment   string // optional, ships traces to the tracking API
}

// declarative agent definition, read from YAML
type AgentConfig struct {
	LLM               LLMConfig         `yaml:"llm_config"`
	Tools             []ToolConfig      `yaml:"tools"`
	InputExample      map[string]any    `yaml:"input_example,omitempty"`
	MaxToolIterations int               `yaml:"max_tool_iterations,omitempty"`
	Supervisor        *SupervisorConfig `yaml:"supervisor,omitempty"`
}

type LLMConfig struct {
	EndpointName         string        `yaml:"llm_endpoint_name"`
	SystemPromptTemplate string        `yaml:"llm_system_prompt_template"`
	Parameters           LLMParameters `yaml:"llm_parameters"`
}

type LLMParameters struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// one entry of the tools list; Spec keeps the raw node so each tool
// type can decode its own fields
type ToolConfig struct {
	Type string
	Name string
	Spec yaml.Node
}

type SupervisorConfig struct {
	LLMEndpointName  string                  `yaml:"llm_endpoint_name"`
	LLMParameters    LLMParameters           `yaml:"llm_parameters"`
	MaxWorkersCalled int                     `yaml:"max_workers_called,omitempty"`
	SystemPrompt     string                  `yaml:"supervisor_system_prompt,omitempty"`
	UserPrompt       string                  `yaml:"supervisor_user_prompt,omitempty"`
	AgentLoadingMode string                  `yaml:"agent_loading_mode,omitempty"` // "local" or "model_serving"
	Agents           []SupervisedAgentConfig `yaml:"agents"`
}

type SupervisedAgentConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	EndpointName string `yaml:"endpoint_name,omitempty"`
	ConfigPath   string `yaml:"config_path,omitempty"` // local mode only
}

// parsed deployer subcommand flags
type DeployFlags struct {
	ConfigPath         string
	DataPipelineConfig string
	RunName            string
	ModelName          string // three-part catalog name
	ModelURI           string
	Version            string
	Endpoint           string
	AppName            string
	Users              []string
	Watch              bool
	Interval           time.Duration
	Timeout            time.Duration
}

// parsed ingester flags
type IngestFlags struct {
	Path              string
	BaseURI           string
	Table             string // catalog.schema.table backing the local index
	EmbeddingEndpoint string
	Dimensions        int
	BatchSize         int
	MaxTokens         int
	OverlapTokens     int
	Clear             bool
	PipelineOut       string // optional path for the data pipeline config JSON
}
