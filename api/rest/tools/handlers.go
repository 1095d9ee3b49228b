package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/ragcookbook/server/internal/errors"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

const maxArgumentsSize = 1 << 20

// ListToolsHandler godoc
// @Summary List agent tools
// @Description Returns the function declarations the agent sends to the LLM
// @Tags tools
// @Produce json
// @Success 200 {object} ListToolsResponse
// @Router /api/v1/tools [get]
func ListToolsHandler(source ToolSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListToolsResponse{Tools: source.Tools().Specs()})
	}
}

// RetrieveHandler godoc
// @Summary Search a vector index
// @Description Runs a retriever tool directly, without the LLM
// @Tags tools
// @Accept json
// @Produce json
// @Param request body RetrieveRequest true "Query and optional filters"
// @Success 200 {object} RetrieveResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/retrieve [post]
func RetrieveHandler(source ToolSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RetrieveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		tool, ok := findRetriever(source.Tools(), req.Tool)
		if !ok {
			errors.NotFound(c, retrieverLabel(req.Tool))
			return
		}

		// Execute applies the tool's own argument checks (filterable columns)
		args, err := json.Marshal(map[string]any{"query": req.Query, "filters": req.Filters})
		if err != nil {
			errors.InternalError(c, "failed to encode arguments", err)
			return
		}

		result, err := tool.Execute(c.Request.Context(), args)
		if err != nil {
			errors.FromError(c, "retrieval failed", err)
			return
		}

		docs, _ := result.([]vectorsearch.Document)
		if docs == nil {
			docs = []vectorsearch.Document{}
		}

		c.JSON(http.StatusOK, RetrieveResponse{Tool: tool.Name(), Documents: docs})
	}
}

// ExecuteHandler godoc
// @Summary Execute a tool
// @Description Calls a tool with a JSON arguments object, as the LLM would
// @Tags tools
// @Accept json
// @Produce json
// @Param name path string true "Tool name"
// @Success 200 {object} ExecuteResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/tools/{name}/execute [post]
func ExecuteHandler(source ToolSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		tool, ok := source.Tools().Get(name)
		if !ok {
			errors.NotFound(c, fmt.Sprintf("tool %q", name))
			return
		}

		args, err := io.ReadAll(io.LimitReader(c.Request.Body, maxArgumentsSize))
		if err != nil {
			errors.BadRequest(c, "failed to read arguments", err)
			return
		}

		if len(args) == 0 {
			args = []byte("{}")
		}

		if !json.Valid(args) {
			errors.BadRequest(c, "arguments must be a JSON object", nil)
			return
		}

		result, err := tool.Execute(c.Request.Context(), args)
		if err != nil {
			errors.FromError(c, "tool execution failed", err)
			return
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			errors.InternalError(c, "failed to encode tool result", err)
			return
		}

		c.JSON(http.StatusOK, ExecuteResponse{Tool: name, Result: encoded})
	}
}

// named tool when it searches, otherwise the first searching tool
func findRetriever(set *tools.Set, name string) (tools.Tool, bool) {
	if name != "" {
		tool, ok := set.Get(name)
		if !ok {
			return nil, false
		}

		_, searches := tool.(Searcher)

		return tool, searches
	}

	for _, tool := range set.All() {
		if _, ok := tool.(Searcher); ok {
			return tool, true
		}
	}

	return nil, false
}

func retrieverLabel(name string) string {
	if name == "" {
		return "retriever tool"
	}

	return fmt.Sprintf("retriever tool %q", name)
}
