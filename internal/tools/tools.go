package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// callable exposed to the LLM
type Tool interface {
	Name() string
	Description() string
	// JSON schema of the arguments object
	ParametersSchema() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// chat-completions tool declaration
type ToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

func Spec(t Tool) ToolSpec {
	return ToolSpec{
		Type: "function",
		Function: FunctionSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParametersSchema(),
		},
	}
}

// named, ordered tool collection used by one agent
type Set struct {
	tools  []Tool
	byName map[string]Tool
}

func NewSet(tools ...Tool) (*Set, error) {
	s := &Set{byName: make(map[string]Tool, len(tools))}

	for _, t := range tools {
		if _, dup := s.byName[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name())
		}

		s.tools = append(s.tools, t)
		s.byName[t.Name()] = t
	}

	return s, nil
}

func (s *Set) Get(name string) (Tool, bool) {
	if s == nil {
		return nil, false
	}

	t, ok := s.byName[name]
	return t, ok
}

func (s *Set) All() []Tool {
	if s == nil {
		return nil
	}

	return s.tools
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}

	return len(s.tools)
}

// declarations for every tool, in configuration order
func (s *Set) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, s.Len())
	for _, t := range s.All() {
		specs = append(specs, Spec(t))
	}

	return specs
}

// error returned when a configured tool type has no factory
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return "unknown tool type: " + e.Type
}
