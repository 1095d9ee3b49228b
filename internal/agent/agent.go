package agent

import (
	"context"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/tiendc/go-deepcopy"
)

// function-calling agent: the LLM calls tools until it produces an answer
type Agent struct {
	model         llm.ChatCompleter
	tools         *tools.Set
	systemPrompt  string
	maxIterations int
}

func New(model llm.ChatCompleter, toolSet *tools.Set, cfg *config.AgentConfig) *Agent {
	maxIterations := cfg.MaxToolIterations
	if maxIterations <= 0 {
		maxIterations = 10
	}

	return &Agent{
		model:         model,
		tools:         toolSet,
		systemPrompt:  cfg.LLM.SystemPromptTemplate,
		maxIterations: maxIterations,
	}
}

func (a *Agent) Tools() *tools.Set {
	return a.tools
}

func (a *Agent) Predict(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	ctx, span := tracing.Start(ctx, "agent", tracing.SpanTypeAgent)
	span.SetInputs(req)

	defer func() {
		if err == nil {
			span.SetOutputs(resp)
		}
		span.End(err)
	}()

	// callers keep ownership of their messages
	var input []llm.Message
	if err := deepcopy.Copy(&input, req.Messages); err != nil {
		return nil, fmt.Errorf("failed to copy messages: %w", err)
	}

	last, history, err := parseInput(ctx, input)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: last.Role, Content: last.Content})

	final, log, err := a.runTools(ctx, messages)
	if err != nil {
		return nil, err
	}

	log = append(log, final)

	return &ChatResponse{
		Content:  final.Content,
		Messages: log[1:],
	}, nil
}

// splits messages into the last message (which may come from another
// assistant in multi-agent setups) and the history before it
func parseInput(ctx context.Context, messages []llm.Message) (llm.Message, []llm.Message, error) {
	_, span := tracing.Start(ctx, "parse_input", tracing.SpanTypeParser)
	span.SetInputs(map[string]any{"messages": messages})

	if len(messages) == 0 {
		span.End(ErrNoMessages)
		return llm.Message{}, nil, ErrNoMessages
	}

	last := messages[len(messages)-1]
	history := messages[:len(messages)-1]

	span.SetOutputs(map[string]any{
		"last_message":      last.Content,
		"chat_history":      history,
		"last_message_role": last.Role,
	})
	span.End(nil)

	return last, history, nil
}

// calls the LLM and runs the tools it asks for until it answers; returns the
// final assistant message and the log leading up to it
func (a *Agent) runTools(ctx context.Context, messages []llm.Message) (final llm.Message, log []llm.Message, err error) {
	ctx, span := tracing.Start(ctx, "recursively_call_and_run_tools", tracing.SpanTypeAgent)
	defer func() { span.End(err) }()

	specs := a.tools.Specs()

	for range a.maxIterations {
		resp, err := a.model.ChatCompletion(ctx, llm.ChatRequest{Messages: messages, Tools: specs})
		if err != nil {
			return llm.Message{}, nil, fmt.Errorf("chat completion failed: %w", err)
		}

		assistant := resp.Message()
		if len(assistant.ToolCalls) == 0 {
			return assistant, messages, nil
		}

		next := make([]llm.Message, 0, len(messages)+1+len(assistant.ToolCalls))
		next = append(next, messages...)

		assistant.Content = ""
		next = append(next, assistant)

		for _, call := range assistant.ToolCalls {
			next = append(next, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    a.callTool(ctx, call),
			})
		}

		messages = next
	}

	return llm.Message{}, nil, fmt.Errorf("%w (%d)", ErrMaxIterations, a.maxIterations)
}

func (a *Agent) callTool(ctx context.Context, call llm.ToolCall) string {
	tool, ok := a.tools.Get(call.Function.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	return tools.ExecuteFunction(ctx, tool, call.Function.Arguments)
}
