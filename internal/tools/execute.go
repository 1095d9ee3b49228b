package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/tracing"
)

// runs tool and renders its result for the LLM; failures come back as
// "Error: ..." text so the model can react instead of the loop aborting
func ExecuteFunction(ctx context.Context, tool Tool, args string) string {
	out, err := Invoke(ctx, tool, args)
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}

	return out
}

// runs tool inside a TOOL span and renders its result as text
func Invoke(ctx context.Context, tool Tool, args string) (string, error) {
	ctx, span := tracing.Start(ctx, tool.Name(), tracing.SpanTypeTool)
	span.SetInputs(rawOrString(args))

	if args == "" {
		args = "{}"
	}

	result, err := tool.Execute(ctx, json.RawMessage(args))
	if err != nil {
		span.End(err)
		return "", err
	}

	out, err := render(result)
	if err != nil {
		span.End(err)
		return "", err
	}

	span.SetOutputs(result)
	span.End(nil)

	return out, nil
}

func render(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case nil:
		return "null", nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}

	return string(data), nil
}

func rawOrString(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}

	return s
}
