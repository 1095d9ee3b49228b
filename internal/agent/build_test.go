package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(config.DefaultToolType, func(_ context.Context, cfg config.ToolConfig) (tools.Tool, error) {
		return &mockTool{name: cfg.Name}, nil
	})

	return registry
}

const workerYAML = `
llm_config:
  llm_endpoint_name: databricks-meta-llama-3-70b-instruct
  llm_system_prompt_template: You answer questions about the docs.
tools:
  - name: search_docs
`

func TestBuild_FunctionCallingAgent(t *testing.T) {
	cfg, err := config.ParseAgentConfig([]byte(workerYAML))
	require.NoError(t, err)

	predictor, err := Build(context.Background(), cfg, Dependencies{Invoker: &mockInvoker{}, Registry: testRegistry()})
	require.NoError(t, err)

	agent, ok := predictor.(*Agent)
	require.True(t, ok)
	assert.Equal(t, 1, agent.Tools().Len())
	assert.Equal(t, 10, agent.maxIterations)
}

func TestBuild_LocalSupervisor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.yaml"), []byte(workerYAML), 0o600))

	cfg, err := config.ParseAgentConfig([]byte(`
supervisor:
  llm_endpoint_name: databricks-meta-llama-3-70b-instruct
  agents:
    - name: docs
      description: answers documentation questions
      config_path: docs.yaml
`))
	require.NoError(t, err)

	predictor, err := Build(context.Background(), cfg, Dependencies{Invoker: &mockInvoker{}, Registry: testRegistry(), BaseDir: dir})
	require.NoError(t, err)

	s, ok := predictor.(*Supervisor)
	require.True(t, ok)
	assert.Equal(t, 5, s.maxWorkers)

	worker, ok := s.workers["docs"]
	require.True(t, ok)
	assert.IsType(t, &Agent{}, worker.Agent)
}

func TestBuild_ModelServingSupervisor(t *testing.T) {
	cfg, err := config.ParseAgentConfig([]byte(`
supervisor:
  llm_endpoint_name: databricks-meta-llama-3-70b-instruct
  agent_loading_mode: model_serving
  max_workers_called: 3
  agents:
    - name: docs
      description: answers documentation questions
      endpoint_name: agents_main-docs-assistant
`))
	require.NoError(t, err)

	var routed []string
	invoker := &mockInvoker{invokeRawFunc: func(_ context.Context, endpoint string, _ any) (json.RawMessage, error) {
		routed = append(routed, endpoint)
		if endpoint == "databricks-meta-llama-3-70b-instruct" {
			return json.RawMessage(`{"choices": [{"message": {"role": "assistant", "tool_calls": [{"id": "1", "type": "function", "function": {"name": "decide_next_worker_or_finish", "arguments": "{\"next_worker_or_finish\": \"FINISH\"}"}}]}}]}`), nil
		}
		return json.RawMessage(`{"content": "worker reply"}`), nil
	}}

	predictor, err := Build(context.Background(), cfg, Dependencies{Invoker: invoker, Registry: testRegistry()})
	require.NoError(t, err)

	s, ok := predictor.(*Supervisor)
	require.True(t, ok)
	assert.Equal(t, 3, s.maxWorkers)
	assert.IsType(t, &EndpointAgent{}, s.workers["docs"].Agent)

	_, err = s.Predict(context.Background(), userRequest("hello"))
	require.NoError(t, err)
	assert.Equal(t, []string{"databricks-meta-llama-3-70b-instruct"}, routed)
}

func TestBuild_MissingWorkerConfig(t *testing.T) {
	cfg, err := config.ParseAgentConfig([]byte(`
supervisor:
  llm_endpoint_name: chat
  agents:
    - name: docs
      description: d
      config_path: does-not-exist.yaml
`))
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, Dependencies{Invoker: &mockInvoker{}, Registry: testRegistry(), BaseDir: t.TempDir()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker docs")
}
