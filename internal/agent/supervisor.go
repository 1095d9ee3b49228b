package agent

import (
	"context"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/tidwall/gjson"
	"github.com/tiendc/go-deepcopy"
)

// supervised agent
type Worker struct {
	Name        string
	Description string
	Agent       Predictor
}

// routes a conversation between workers until it decides to finish
type Supervisor struct {
	model        llm.ChatCompleter
	workers      map[string]Worker
	maxWorkers   int
	systemPrompt string
	userPrompt   string
	routingTool  tools.ToolSpec
}

func NewSupervisor(model llm.ChatCompleter, cfg *config.SupervisorConfig, workers []Worker) (*Supervisor, error) {
	if len(workers) == 0 {
		return nil, fmt.Errorf("supervisor needs at least one worker")
	}

	byName := make(map[string]Worker, len(workers))
	names := make([]string, 0, len(workers)+1)

	for _, w := range workers {
		if w.Name == FinishRouteName || w.Name == SupervisorRouteName {
			return nil, fmt.Errorf("worker name %q is reserved", w.Name)
		}
		if _, dup := byName[w.Name]; dup {
			return nil, fmt.Errorf("duplicate worker name %q", w.Name)
		}

		byName[w.Name] = w
		names = append(names, w.Name)
	}
	names = append(names, FinishRouteName)

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSupervisorSystemPrompt
	}

	userPrompt := cfg.UserPrompt
	if userPrompt == "" {
		userPrompt = defaultSupervisorUserPrompt
	}

	maxWorkers := cfg.MaxWorkersCalled
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	return &Supervisor{
		model:        model,
		workers:      byName,
		maxWorkers:   maxWorkers,
		systemPrompt: renderPrompt(systemPrompt, workers),
		userPrompt:   renderPrompt(userPrompt, workers),
		routingTool:  routingToolSpec(names),
	}, nil
}

func routingToolSpec(routes []string) tools.ToolSpec {
	return tools.ToolSpec{
		Type: "function",
		Function: tools.FunctionSpec{
			Name:        RoutingFunctionName,
			Description: "Route the conversation by providing your thinking and next worker selection.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					ConversationHistoryThinkingParam: map[string]any{"type": "string"},
					WorkerCapabilitiesThinkingParam:  map[string]any{"type": "string"},
					NextWorkerOrFinishParam: map[string]any{
						"type": "string",
						"enum": routes,
					},
				},
				"required": []string{
					ConversationHistoryThinkingParam,
					WorkerCapabilitiesThinkingParam,
					NextWorkerOrFinishParam,
				},
			},
		},
	}
}

// the conversation returned includes every worker reply; content is the
// last worker's reply, empty when no worker was called
func (s *Supervisor) Predict(ctx context.Context, req ChatRequest) (resp *ChatResponse, err error) {
	ctx, span := tracing.Start(ctx, "supervisor", tracing.SpanTypeAgent)
	span.SetInputs(req)

	defer func() {
		if err == nil {
			span.SetOutputs(resp)
		}
		span.End(err)
	}()

	var conversation []llm.Message
	if err := deepcopy.Copy(&conversation, req.Messages); err != nil {
		return nil, fmt.Errorf("failed to copy messages: %w", err)
	}

	if len(conversation) == 0 {
		return nil, ErrNoMessages
	}

	var content string

	for called := 0; called < s.maxWorkers; called++ {
		next, err := s.route(ctx, conversation)
		if err != nil {
			return nil, err
		}

		if next == FinishRouteName {
			break
		}

		worker, ok := s.workers[next]
		if !ok {
			logger.FromContext(ctx).Warn("supervisor picked an unknown worker, finishing", "worker", next)
			break
		}

		reply, err := worker.Agent.Predict(ctx, ChatRequest{Messages: conversation})
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", worker.Name, err)
		}

		content = reply.Content
		conversation = append(conversation, llm.Message{
			Role:    llm.RoleAssistant,
			Name:    worker.Name,
			Content: reply.Content,
		})
	}

	return &ChatResponse{Content: content, Messages: conversation}, nil
}

// asks the supervisor LLM for the next worker; a reply without the routing
// call finishes the conversation
func (s *Supervisor) route(ctx context.Context, conversation []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(conversation)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	messages = append(messages, conversation...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: s.userPrompt})

	resp, err := s.model.ChatCompletion(ctx, llm.ChatRequest{
		Messages:   messages,
		Tools:      []tools.ToolSpec{s.routingTool},
		ToolChoice: llm.ForceFunction(RoutingFunctionName),
	})
	if err != nil {
		return "", fmt.Errorf("supervisor routing failed: %w", err)
	}

	return parseRoute(ctx, resp.Message()), nil
}

func parseRoute(ctx context.Context, msg llm.Message) string {
	_, span := tracing.Start(ctx, "parse_routing_decision", tracing.SpanTypeParser)
	defer span.End(nil)

	for _, call := range msg.ToolCalls {
		if call.Function.Name != RoutingFunctionName {
			continue
		}

		args := gjson.Parse(call.Function.Arguments)
		span.SetOutputs(map[string]any{
			ConversationHistoryThinkingParam: args.Get(ConversationHistoryThinkingParam).String(),
			WorkerCapabilitiesThinkingParam:  args.Get(WorkerCapabilitiesThinkingParam).String(),
			NextWorkerOrFinishParam:          args.Get(NextWorkerOrFinishParam).String(),
		})

		if next := args.Get(NextWorkerOrFinishParam).String(); next != "" {
			return next
		}
	}

	return FinishRouteName
}
