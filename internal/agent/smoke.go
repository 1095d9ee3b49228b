package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// runs the config's input example through p; an agent that errors or
// answers with nothing must not be logged
func SmokeTest(ctx context.Context, p Predictor, example map[string]any) (*ChatResponse, error) {
	if len(example) == 0 {
		return nil, fmt.Errorf("input_example is required to check the agent before logging")
	}

	raw, err := json.Marshal(example)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input_example: %w", err)
	}

	var req ChatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("input_example is not a chat request: %w", err)
	}

	resp, err := p.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("input_example failed: %w", err)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("input_example produced an empty response")
	}

	return resp, nil
}
