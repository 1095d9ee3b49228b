package agent

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
)

const (
	// returns the last worker's response to the user
	FinishRouteName = "FINISH"
	// reserved for the supervisor itself
	SupervisorRouteName = "SUPERVISOR"
	// function the supervisor LLM calls to report its routing decision
	RoutingFunctionName = "decide_next_worker_or_finish"

	ConversationHistoryThinkingParam = "conversation_history_thinking"
	WorkerCapabilitiesThinkingParam  = "worker_capabilities_thinking"
	NextWorkerOrFinishParam          = "next_worker_or_finish"

	workerPromptTemplate = "<worker><worker_name>%s</worker_name><worker_description>%s</worker_description>"
)

var defaultSupervisorSystemPrompt = heredoc.Doc(`
	## Role
	You are a supervisor responsible for managing a conversation between a user and the following workers.  You select the next worker to respond or end the conversation to return the last worker's response to the user.  Use the {ROUTING_FUNCTION_NAME} function to share your step-by-step reasoning and decision.

	## Workers
	<workers>{workers_names_and_descriptions}</workers>

	## Objective
	Your goal is to facilitate the conversation and ensure the user receives a helpful response.

	## Instructions
	1. **Review the Conversation History**: Think step by step by to understand the user's request and the conversation history which includes previous worker's responses.  Output to the ` + "`{CONVERSATION_HISTORY_THINKING_PARAM}`" + ` variable.
	2. **Assess Worker Descriptions**: Think step by step to consider the description of each worker to understand their capabilities in the context of the conversation history.  Output to the ` + "`{WORKER_CAPABILITIES_THINKING_PARAM}`" + ` variable.
	3. **Select the next worker OR finish the conversation**: Based on the converastion history, the worker's descriptions and your thinking, decide which worker should respond next OR if the conversation should finish with the last worker's response going to the user.  If the conversation becomes unproductive or stuck, also respond with "{FINISH_ROUTE_NAME}."  Output either the <worker_name> or "{FINISH_ROUTE_NAME}" to the ` + "`{NEXT_WORKER_OR_FINISH_PARAM}`" + ` variable.

	## Additional Notes
	- A conversation is considered "stuck" if there is no progress or if workers are unable to proceed with their tasks.`)

var defaultSupervisorUserPrompt = "Given the converastion history, the worker's descriptions and your thinking, which worker should act next OR should we FINISH? Respond with one of [{worker_names_with_finish}] to the `{NEXT_WORKER_OR_FINISH_PARAM}` variable in the {ROUTING_FUNCTION_NAME} function."

// fills {placeholders} in the supervisor prompts
func renderPrompt(template string, workers []Worker) string {
	descriptions := make([]string, 0, len(workers))
	names := make([]string, 0, len(workers)+1)

	for _, w := range workers {
		descriptions = append(descriptions, fmt.Sprintf(workerPromptTemplate, w.Name, w.Description))
		names = append(names, w.Name)
	}
	names = append(names, FinishRouteName)

	return strings.NewReplacer(
		"{ROUTING_FUNCTION_NAME}", RoutingFunctionName,
		"{FINISH_ROUTE_NAME}", FinishRouteName,
		"{CONVERSATION_HISTORY_THINKING_PARAM}", ConversationHistoryThinkingParam,
		"{WORKER_CAPABILITIES_THINKING_PARAM}", WorkerCapabilitiesThinkingParam,
		"{NEXT_WORKER_OR_FINISH_PARAM}", NextWorkerOrFinishParam,
		"{workers_names_and_descriptions}", strings.Join(descriptions, ""),
		"{worker_names_with_finish}", strings.Join(names, ", "),
	).Replace(template)
}
