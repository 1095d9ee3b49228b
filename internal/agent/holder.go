package agent

import (
	"context"
	"sync"

	"codeberg.org/ragcookbook/server/internal/tools"
)

// current predictor, swapped atomically when the configuration reloads
type Holder struct {
	mu      sync.RWMutex
	current Predictor
}

func NewHolder(p Predictor) *Holder {
	return &Holder{current: p}
}

func (h *Holder) Load() Predictor {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.current
}

func (h *Holder) Swap(p Predictor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = p
}

func (h *Holder) Predict(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return h.Load().Predict(ctx, req)
}

// tools of the current predictor; nil for predictors without tools
func (h *Holder) Tools() *tools.Set {
	if withTools, ok := h.Load().(interface{ Tools() *tools.Set }); ok {
		return withTools.Tools()
	}

	return nil
}

// names the kind of predictor currently served
func (h *Holder) Kind() string {
	switch h.Load().(type) {
	case *Agent:
		return "function_calling_agent"
	case *Supervisor:
		return "supervisor"
	case *EndpointAgent:
		return "model_serving_endpoint"
	case nil:
		return "none"
	default:
		return "custom"
	}
}
