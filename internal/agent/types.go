package agent

import (
	"context"
	"errors"

	"codeberg.org/ragcookbook/server/internal/llm"
)

var (
	ErrNoMessages    = errors.New("messages must contain at least one message")
	ErrMaxIterations = errors.New("max tool iterations reached")
)

// answers a chat conversation; implemented by Agent, Supervisor and
// EndpointAgent
type Predictor interface {
	Predict(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// final answer plus the message log (tool calls included, system prompt
// excluded) for the caller to send back on the next turn
type ChatResponse struct {
	Content  string        `json:"content"`
	Messages []llm.Message `json:"messages"`
}
