package llm

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/tracing"
)

var ErrNoChoices = errors.New("chat completion returned no choices")

type chatPayload struct {
	Messages          []Message        `json:"messages"`
	Tools             []tools.ToolSpec `json:"tools,omitempty"`
	ToolChoice        *ToolChoice      `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool            `json:"parallel_tool_calls,omitempty"`
	Temperature       float64          `json:"temperature"`
	MaxTokens         int              `json:"max_tokens,omitempty"`
}

// chat model behind a serving endpoint
type ChatModel struct {
	invoker  Invoker
	endpoint string
	params   config.LLMParameters
}

func NewChatModel(invoker Invoker, endpoint string, params config.LLMParameters) *ChatModel {
	return &ChatModel{
		invoker:  invoker,
		endpoint: endpoint,
		params:   params,
	}
}

func (m *ChatModel) Endpoint() string {
	return m.endpoint
}

// sends one chat-completions request; tool calls are never parallel
func (m *ChatModel) ChatCompletion(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	ctx, span := tracing.Start(ctx, "chat_completions_api", tracing.SpanTypeChatModel)
	span.SetAttributes(map[string]any{"endpoint": m.endpoint})

	payload := chatPayload{
		Messages:    req.Messages,
		Tools:       req.Tools,
		ToolChoice:  req.ToolChoice,
		Temperature: m.params.Temperature,
		MaxTokens:   m.params.MaxTokens,
	}

	if len(req.Tools) > 0 {
		parallel := false
		payload.ParallelToolCalls = &parallel
	}

	span.SetInputs(payload)

	defer func() {
		if err == nil {
			span.SetOutputs(resp)
		}
		span.End(err)
	}()

	var out ChatResponse
	if err := m.invoker.Invocations(ctx, m.endpoint, payload, &out); err != nil {
		return nil, err
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", m.endpoint, ErrNoChoices)
	}

	return &out, nil
}

// first choice's message
func (r *ChatResponse) Message() Message {
	if r == nil || len(r.Choices) == 0 {
		return Message{}
	}

	return r.Choices[0].Message
}
