package agent

import (
	"context"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/tidwall/gjson"
)

// agent deployed behind a serving endpoint
type EndpointAgent struct {
	invoker  llm.Invoker
	endpoint string
}

func NewEndpointAgent(invoker llm.Invoker, endpoint string) *EndpointAgent {
	return &EndpointAgent{invoker: invoker, endpoint: endpoint}
}

// accepts both the agent response shape {content, messages} and a plain
// chat-completions response
func (e *EndpointAgent) Predict(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	ctx, span := tracing.Start(ctx, e.endpoint, tracing.SpanTypeAgent)
	span.SetInputs(req)

	defer func() {
		if err == nil {
			span.SetOutputs(resp)
		}
		span.End(err)
	}()

	raw, err := e.invoker.InvokeRaw(ctx, e.endpoint, req)
	if err != nil {
		return nil, err
	}

	body := gjson.ParseBytes(raw)

	content := body.Get("content")
	if !content.Exists() {
		content = body.Get("choices.0.message.content")
	}

	if !content.Exists() {
		return nil, fmt.Errorf("%s: response has no content", e.endpoint)
	}

	return &ChatResponse{Content: content.String(), Messages: req.Messages}, nil
}
