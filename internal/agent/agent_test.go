package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// implements llm.ChatCompleter for testing; replies are consumed in order
type mockChatModel struct {
	chatCompletionFunc func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	requests           []llm.ChatRequest
}

func (m *mockChatModel) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.chatCompletionFunc != nil {
		return m.chatCompletionFunc(ctx, req)
	}

	return reply(llm.Message{Role: llm.RoleAssistant, Content: "mock answer"}), nil
}

func scripted(replies ...llm.Message) func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	i := 0
	return func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		if i >= len(replies) {
			return nil, errors.New("no more scripted replies")
		}
		msg := replies[i]
		i++
		return reply(msg), nil
	}
}

func reply(msg llm.Message) *llm.ChatResponse {
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: msg}}}
}

func toolCall(id, name, args string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

// implements tools.Tool for testing
type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, args json.RawMessage) (any, error)
	calls       []string
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool " + m.name }

func (m *mockTool) ParametersSchema() map[string]any {
	return map[string]any{"type": "object"}
}

func (m *mockTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	m.calls = append(m.calls, string(args))
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return map[string]any{"ok": true}, nil
}

func newTestAgent(t *testing.T, model llm.ChatCompleter, maxIterations int, toolList ...tools.Tool) *Agent {
	t.Helper()

	set, err := tools.NewSet(toolList...)
	require.NoError(t, err)

	return New(model, set, &config.AgentConfig{
		LLM:               config.LLMConfig{SystemPromptTemplate: "You are a helpful assistant."},
		MaxToolIterations: maxIterations,
	})
}

func TestPredict_AnswersWithoutTools(t *testing.T) {
	model := &mockChatModel{}
	agent := newTestAgent(t, model, 0)

	resp, err := agent.Predict(context.Background(), ChatRequest{Messages: []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "what is delta lake?"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "mock answer", resp.Content)

	require.Len(t, model.requests, 1)
	sent := model.requests[0].Messages
	require.Len(t, sent, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: "You are a helpful assistant."}, sent[0])
	assert.Equal(t, "what is delta lake?", sent[3].Content)

	// system prompt is not returned to the caller
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, llm.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, "mock answer", resp.Messages[3].Content)
}

func TestPredict_RunsToolsUntilAnswer(t *testing.T) {
	search := &mockTool{name: "search_docs", executeFunc: func(context.Context, json.RawMessage) (any, error) {
		return []map[string]string{{"page_content": "Delta Lake is a storage layer."}}, nil
	}}

	model := &mockChatModel{chatCompletionFunc: scripted(
		toolCall("call_1", "search_docs", `{"query":"delta lake"}`),
		llm.Message{Role: llm.RoleAssistant, Content: "Delta Lake is a storage layer."},
	)}

	agent := newTestAgent(t, model, 10, search)

	resp, err := agent.Predict(context.Background(), ChatRequest{Messages: []llm.Message{
		{Role: llm.RoleUser, Content: "what is delta lake?"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "Delta Lake is a storage layer.", resp.Content)
	assert.Equal(t, []string{`{"query":"delta lake"}`}, search.calls)

	require.Len(t, model.requests, 2)
	require.Len(t, model.requests[0].Tools, 1)
	assert.Equal(t, "search_docs", model.requests[0].Tools[0].Function.Name)

	require.Len(t, resp.Messages, 4)
	assert.Equal(t, llm.RoleUser, resp.Messages[0].Role)

	assistant := resp.Messages[1]
	assert.Equal(t, llm.RoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)

	toolMsg := resp.Messages[2]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.JSONEq(t, `[{"page_content": "Delta Lake is a storage layer."}]`, toolMsg.Content)

	assert.Equal(t, "Delta Lake is a storage layer.", resp.Messages[3].Content)
}

func TestPredict_ToolErrorsReachTheModel(t *testing.T) {
	failing := &mockTool{name: "lookup", executeFunc: func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("index offline")
	}}

	model := &mockChatModel{chatCompletionFunc: scripted(
		toolCall("call_1", "lookup", `{}`),
		toolCall("call_2", "missing_tool", `{}`),
		llm.Message{Role: llm.RoleAssistant, Content: "sorry"},
	)}

	agent := newTestAgent(t, model, 10, failing)

	resp, err := agent.Predict(context.Background(), ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}}})
	require.NoError(t, err)

	assert.Equal(t, "sorry", resp.Content)
	assert.Equal(t, "Error: index offline", resp.Messages[2].Content)
	assert.Equal(t, `Error: unknown tool "missing_tool"`, resp.Messages[4].Content)
}

func TestPredict_MaxIterations(t *testing.T) {
	model := &mockChatModel{chatCompletionFunc: func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return reply(toolCall("call", "lookup", `{}`)), nil
	}}

	agent := newTestAgent(t, model, 3, &mockTool{name: "lookup"})

	_, err := agent.Predict(context.Background(), ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}}})

	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, model.requests, 3)
}

func TestPredict_Errors(t *testing.T) {
	t.Run("no messages", func(t *testing.T) {
		_, err := newTestAgent(t, &mockChatModel{}, 0).Predict(context.Background(), ChatRequest{})
		assert.ErrorIs(t, err, ErrNoMessages)
	})

	t.Run("model failure", func(t *testing.T) {
		model := &mockChatModel{chatCompletionFunc: func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
			return nil, errors.New("503")
		}}

		_, err := newTestAgent(t, model, 0).Predict(context.Background(), ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}}})
		assert.EqualError(t, err, "chat completion failed: 503")
	})
}

func TestPredict_LastMessageRoleIsPreserved(t *testing.T) {
	model := &mockChatModel{}
	agent := newTestAgent(t, model, 0)

	_, err := agent.Predict(context.Background(), ChatRequest{Messages: []llm.Message{
		{Role: llm.RoleUser, Content: "plan a trip"},
		{Role: llm.RoleAssistant, Name: "planner", Content: "draft itinerary"},
	}})
	require.NoError(t, err)

	sent := model.requests[0].Messages
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "draft itinerary"}, sent[len(sent)-1])
}

func TestPredict_DoesNotMutateInput(t *testing.T) {
	model := &mockChatModel{chatCompletionFunc: scripted(
		toolCall("call_1", "lookup", `{}`),
		llm.Message{Role: llm.RoleAssistant, Content: "done"},
	)}
	agent := newTestAgent(t, model, 0, &mockTool{name: "lookup"})

	input := []llm.Message{{Role: llm.RoleUser, Content: "q"}}
	_, err := agent.Predict(context.Background(), ChatRequest{Messages: input})
	require.NoError(t, err)

	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "q"}}, input)
}

func TestHolder(t *testing.T) {
	first := newTestAgent(t, &mockChatModel{chatCompletionFunc: scripted(llm.Message{Role: llm.RoleAssistant, Content: "v1"})}, 0, &mockTool{name: "a"})
	second := newTestAgent(t, &mockChatModel{chatCompletionFunc: scripted(llm.Message{Role: llm.RoleAssistant, Content: "v2"})}, 0)

	holder := NewHolder(first)
	req := ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "q"}}}

	resp, err := holder.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v1", resp.Content)
	assert.Equal(t, 1, holder.Tools().Len())
	assert.Equal(t, "function_calling_agent", holder.Kind())

	holder.Swap(second)

	resp, err = holder.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "v2", resp.Content)
	assert.Equal(t, 0, holder.Tools().Len())
}

func TestHolder_PredictorWithoutTools(t *testing.T) {
	holder := NewHolder(NewEndpointAgent(&mockInvoker{}, "agent-endpoint"))

	assert.Nil(t, holder.Tools())
	assert.Equal(t, "model_serving_endpoint", holder.Kind())
	assert.Equal(t, "none", NewHolder(nil).Kind())
}
