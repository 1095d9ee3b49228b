package tools

import (
	"context"
	"encoding/json"

	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

// agent.Holder in production; tools follow config reloads
type ToolSource interface {
	Tools() *tools.Set
}

// tools that run similarity searches
type Searcher interface {
	Search(ctx context.Context, query string, filters []vectorsearch.FilterItem) ([]vectorsearch.Document, error)
}

type ListToolsResponse struct {
	Tools []tools.ToolSpec `json:"tools"`
}

type RetrieveRequest struct {
	Tool    string                    `json:"tool,omitempty"` // defaults to the first retriever
	Query   string                    `json:"query" binding:"required"`
	Filters []vectorsearch.FilterItem `json:"filters,omitempty"`
}

type RetrieveResponse struct {
	Tool      string                  `json:"tool"`
	Documents []vectorsearch.Document `json:"documents"`
}

type ExecuteResponse struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
}
