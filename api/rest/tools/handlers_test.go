package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

type mockTool struct {
	name        string
	executeFunc func(ctx context.Context, args json.RawMessage) (any, error)
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock " + m.name }

func (m *mockTool) ParametersSchema() map[string]any {
	return map[string]any{"type": "object"}
}

func (m *mockTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	return m.executeFunc(ctx, args)
}

// a mockTool that also searches
type mockRetriever struct {
	mockTool
}

func (m *mockRetriever) Search(context.Context, string, []vectorsearch.FilterItem) ([]vectorsearch.Document, error) {
	return nil, nil
}

type invalidArgs string

func (e invalidArgs) Error() string         { return string(e) }
func (e invalidArgs) InvalidArgument() bool { return true }

type staticSource struct {
	set *tools.Set
}

func (s staticSource) Tools() *tools.Set { return s.set }

func newTestRouter(t *testing.T, ts ...tools.Tool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	set, err := tools.NewSet(ts...)
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), staticSource{set: set}, nil)

	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func echoTool(name string) *mockTool {
	return &mockTool{name: name, executeFunc: func(_ context.Context, args json.RawMessage) (any, error) {
		return map[string]any{"received": json.RawMessage(args)}, nil
	}}
}

func docsRetriever(name string, got *json.RawMessage) *mockRetriever {
	return &mockRetriever{mockTool{name: name, executeFunc: func(_ context.Context, args json.RawMessage) (any, error) {
		*got = args
		return []vectorsearch.Document{{ID: "1", PageContent: "chunk", Metadata: map[string]any{"doc_uri": "a.md"}}}, nil
	}}}
}

func TestListToolsHandler(t *testing.T) {
	router := newTestRouter(t, echoTool("calculator"), echoTool("lookup"))

	w := do(router, http.MethodGet, "/api/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListToolsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Tools, 2)
	assert.Equal(t, "function", resp.Tools[0].Type)
	assert.Equal(t, "calculator", resp.Tools[0].Function.Name)
	assert.Equal(t, "lookup", resp.Tools[1].Function.Name)
}

func TestRetrieveHandler(t *testing.T) {
	var got json.RawMessage
	router := newTestRouter(t, echoTool("calculator"), docsRetriever("search_docs", &got))

	w := do(router, http.MethodPost, "/api/v1/retrieve",
		`{"query":"deploy","filters":[{"field":"section","filter":"intro"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.JSONEq(t, `{"query":"deploy","filters":[{"field":"section","filter":"intro"}]}`, string(got))

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "search_docs", resp.Tool)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "chunk", resp.Documents[0].PageContent)
}

func TestRetrieveHandler_Errors(t *testing.T) {
	failing := &mockRetriever{mockTool{name: "strict", executeFunc: func(context.Context, json.RawMessage) (any, error) {
		return nil, invalidArgs(`field "year" is not filterable`)
	}}}

	tests := []struct {
		name       string
		tools      []tools.Tool
		body       string
		wantStatus int
	}{
		{"missing query", []tools.Tool{failing}, `{}`, http.StatusBadRequest},
		{"no retriever configured", []tools.Tool{echoTool("calculator")}, `{"query":"q"}`, http.StatusNotFound},
		{"named tool does not search", []tools.Tool{echoTool("calculator"), failing}, `{"tool":"calculator","query":"q"}`, http.StatusNotFound},
		{"unknown tool", []tools.Tool{failing}, `{"tool":"missing","query":"q"}`, http.StatusNotFound},
		{"invalid arguments", []tools.Tool{failing}, `{"query":"q","filters":[{"field":"year","filter":1}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(t, tt.tools...), http.MethodPost, "/api/v1/retrieve", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestExecuteHandler(t *testing.T) {
	router := newTestRouter(t, echoTool("calculator"))

	w := do(router, http.MethodPost, "/api/v1/tools/calculator/execute", `{"expression":"1+1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tool":"calculator","result":{"received":{"expression":"1+1"}}}`, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/tools/calculator/execute", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tool":"calculator","result":{"received":{}}}`, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/tools/calculator/execute", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/tools/missing/execute", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
