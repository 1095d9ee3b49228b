package config

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultPollTimeout  = 45 * time.Minute
)

// parses flags for a deployer subcommand
func ParseDeployFlags(command string, args []string) (DeployFlags, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	configPath := fs.String("config", defaultAgentConfigPath, "path to the agent YAML config")
	pipelinePath := fs.String("data-pipeline-config", "", "optional YAML/JSON data pipeline config to attach to the run")
	runName := fs.String("run-name", "agent_poc", "tracking run name")
	modelName := fs.String("model", "", "catalog model name, e.g. catalog.schema.agent")
	modelURI := fs.String("model-uri", "", "model URI returned by `log` (runs:/<run_id>/agent)")
	version := fs.String("version", "", "registered model version")
	endpoint := fs.String("endpoint", "", "serving endpoint name")
	appName := fs.String("app-name", "RAG agent", "application name shown in reviewer instructions")
	users := fs.String("users", "", "comma separated users to grant CAN_QUERY")
	watch := fs.Bool("watch", false, "render deployment progress in the terminal UI")
	interval := fs.Duration("interval", defaultPollInterval, "endpoint status poll interval")
	timeout := fs.Duration("timeout", defaultPollTimeout, "give up waiting after this long (0 = no limit)")

	if err := fs.Parse(args); err != nil {
		return DeployFlags{}, err
	}

	if *interval <= 0 {
		return DeployFlags{}, fmt.Errorf("-interval must be positive")
	}

	return DeployFlags{
		ConfigPath:         *configPath,
		DataPipelineConfig: *pipelinePath,
		RunName:            *runName,
		ModelName:          *modelName,
		ModelURI:           *modelURI,
		Version:            *version,
		Endpoint:           *endpoint,
		AppName:            *appName,
		Users:              splitList(*users),
		Watch:              *watch,
		Interval:           *interval,
		Timeout:            *timeout,
	}, nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

const (
	defaultEmbeddingEndpoint = "databricks-gte-large-en"
	defaultDimensions        = 1024
	defaultBatchSize         = 64
	defaultMaxTokens         = 800
	defaultOverlapTokens     = 100
)

// parses flags for an ingester subcommand
func ParseIngestFlags(command string, args []string) (IngestFlags, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	path := fs.String("path", "./docs", "directory of markdown files to ingest")
	baseURI := fs.String("base-uri", "", "prefix for document URIs (defaults to the relative path)")
	table := fs.String("table", "", "catalog.schema.table of the local vector index")
	endpoint := fs.String("embedding-endpoint", defaultEmbeddingEndpoint, "serving endpoint that computes embeddings")
	dimensions := fs.Int("dimensions", defaultDimensions, "embedding size used when creating the table")
	batchSize := fs.Int("batch-size", defaultBatchSize, "chunks embedded and written per batch")
	maxTokens := fs.Int("max-tokens", defaultMaxTokens, "approximate chunk size limit")
	overlapTokens := fs.Int("overlap-tokens", defaultOverlapTokens, "trailing context repeated when a section is split")
	clearFirst := fs.Bool("clear", false, "delete existing chunks before ingesting")
	pipelineOut := fs.String("pipeline-out", "", "write the data pipeline config to this JSON file")

	if err := fs.Parse(args); err != nil {
		return IngestFlags{}, err
	}

	if *table == "" {
		return IngestFlags{}, fmt.Errorf("-table is required")
	}

	if *batchSize <= 0 || *maxTokens <= 0 || *dimensions <= 0 {
		return IngestFlags{}, fmt.Errorf("-batch-size, -max-tokens and -dimensions must be positive")
	}

	if *overlapTokens < 0 || *overlapTokens >= *maxTokens {
		return IngestFlags{}, fmt.Errorf("-overlap-tokens must be between 0 and -max-tokens")
	}

	return IngestFlags{
		Path:              *path,
		BaseURI:           *baseURI,
		Table:             *table,
		EmbeddingEndpoint: *endpoint,
		Dimensions:        *dimensions,
		BatchSize:         *batchSize,
		MaxTokens:         *maxTokens,
		OverlapTokens:     *overlapTokens,
		Clear:             *clearFirst,
		PipelineOut:       *pipelineOut,
	}, nil
}
