package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"codeberg.org/ragcookbook/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, args json.RawMessage) (any, error)
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock " + m.name }

func (m *mockTool) ParametersSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (m *mockTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return nil, nil
}

func toolConfigs(t *testing.T, src string) []config.ToolConfig {
	t.Helper()

	var cfgs []config.ToolConfig
	require.NoError(t, yaml.Unmarshal([]byte(src), &cfgs))

	return cfgs
}

func TestSpec(t *testing.T) {
	spec := Spec(&mockTool{name: "search"})

	assert.Equal(t, "function", spec.Type)
	assert.Equal(t, "search", spec.Function.Name)
	assert.Equal(t, "mock search", spec.Function.Description)

	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"function","function":{"name":"search","description":"mock search","parameters":{"type":"object","properties":{}}}}`, string(data))
}

func TestNewSet(t *testing.T) {
	set, err := NewSet(&mockTool{name: "a"}, &mockTool{name: "b"})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	_, ok := set.Get("b")
	assert.True(t, ok)
	assert.Len(t, set.Specs(), 2)

	_, err = NewSet(&mockTool{name: "a"}, &mockTool{name: "a"})
	assert.ErrorContains(t, err, `duplicate tool name "a"`)

	var nilSet *Set
	assert.Equal(t, 0, nilSet.Len())
	assert.Empty(t, nilSet.Specs())
}

func TestRegistry_BuildKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func(ctx context.Context, cfg config.ToolConfig) (Tool, error) {
		return &mockTool{name: cfg.Name}, nil
	})

	set, err := r.Build(context.Background(), toolConfigs(t, `
- {type: mock, name: first}
- {type: mock, name: second}
- {type: mock, name: third}
`))

	require.NoError(t, err)

	var names []string
	for _, tool := range set.All() {
		names = append(names, tool.Name())
	}

	assert.Equal(t, []string{"first", "second", "third"}, names)
	assert.Equal(t, []string{"mock"}, r.Types())
	assert.True(t, r.Has("mock"))
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build(context.Background(), toolConfigs(t, `- {type: sql, name: q}`))

	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "sql", unknown.Type)
	assert.Contains(t, err.Error(), `tool "q"`)
}

func TestRegistry_FactoryError(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func(ctx context.Context, cfg config.ToolConfig) (Tool, error) {
		return nil, errors.New("Vector search index main.docs.idx does not exist.")
	})

	_, err := r.Build(context.Background(), toolConfigs(t, `- {type: mock, name: docs}`))
	assert.ErrorContains(t, err, "does not exist")
}

func TestExecuteFunction(t *testing.T) {
	tests := []struct {
		name   string
		result any
		err    error
		want   string
	}{
		{"json result", []map[string]any{{"id": "1"}}, nil, `[{"id":"1"}]`},
		{"string result", "plain text", nil, "plain text"},
		{"nil result", nil, nil, "null"},
		{"error", nil, errors.New("query is required"), "Error: query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := &mockTool{
				name: "search",
				executeFunc: func(ctx context.Context, args json.RawMessage) (any, error) {
					return tt.result, tt.err
				},
			}

			assert.Equal(t, tt.want, ExecuteFunction(context.Background(), tool, `{"query":"x"}`))
		})
	}
}

func TestExecuteFunction_EmptyArgs(t *testing.T) {
	var got json.RawMessage
	tool := &mockTool{
		name: "search",
		executeFunc: func(ctx context.Context, args json.RawMessage) (any, error) {
			got = args
			return "ok", nil
		},
	}

	ExecuteFunction(context.Background(), tool, "")
	assert.JSONEq(t, `{}`, string(got))
}
