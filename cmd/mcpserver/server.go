package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/tools"
)

const (
	serverName    = "ragcookbook"
	serverVersion = "1.0.0"
)

// exposes every tool of set with its own arguments schema
func NewMCPServer(set *tools.Set) (*server.MCPServer, error) {
	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, tool := range set.All() {
		schema, err := json.Marshal(tool.ParametersSchema())
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema of %s: %w", tool.Name(), err)
		}

		s.AddTool(mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema), toolHandler(tool))
	}

	return s, nil
}

// tool failures are reported as error results, not protocol errors
func toolHandler(tool tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %s", err)), nil
		}

		out, err := tools.Invoke(ctx, tool, string(args))
		if err != nil {
			logger.Warn("tool call failed", "tool", tool.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(out), nil
	}
}
