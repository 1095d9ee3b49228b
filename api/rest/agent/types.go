package agent

import (
	"context"

	agentcore "codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/llm"
)

// agent.Holder in production
type Predictor interface {
	Predict(ctx context.Context, req agentcore.ChatRequest) (*agentcore.ChatResponse, error)
}

type InvocationsRequest struct {
	Messages []llm.Message `json:"messages" binding:"required,min=1"`
}

type InvocationsResponse struct {
	Content   string        `json:"content"`
	Messages  []llm.Message `json:"messages"`
	RequestID string        `json:"request_id,omitempty"`
}
