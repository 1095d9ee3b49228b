package vectorsearch

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"testing"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIndex = "main.docs.chunks_index"
	testTable = "main.docs.chunks"
)

// mock implementation of Catalog
type mockCatalog struct {
	getIndexFunc   func(ctx context.Context, name string) (*platform.IndexInfo, error)
	getTableFunc   func(ctx context.Context, fullName string) (*platform.TableInfo, error)
	queryIndexFunc func(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error)

	getIndexCalls int
}

func (m *mockCatalog) GetIndex(ctx context.Context, name string) (*platform.IndexInfo, error) {
	m.getIndexCalls++
	if m.getIndexFunc != nil {
		return m.getIndexFunc(ctx, name)
	}
	return deltaSyncIndex(), nil
}

func (m *mockCatalog) GetTable(ctx context.Context, fullName string) (*platform.TableInfo, error) {
	if m.getTableFunc != nil {
		return m.getTableFunc(ctx, fullName)
	}
	return sourceTable(), nil
}

func (m *mockCatalog) QueryIndex(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
	if m.queryIndexFunc != nil {
		return m.queryIndexFunc(ctx, req)
	}
	return queryResponse(), nil
}

func deltaSyncIndex() *platform.IndexInfo {
	return &platform.IndexInfo{
		Name:       testIndex,
		PrimaryKey: "chunk_id",
		IndexType:  platform.IndexTypeDeltaSync,
		DeltaSyncIndexSpec: &platform.DeltaSyncIndexSpec{
			SourceTable: testTable,
			EmbeddingSourceColumns: []platform.EmbeddingSourceColumn{
				{Name: "content", EmbeddingModelEndpointName: "databricks-gte-large-en"},
			},
		},
	}
}

func sourceTable() *platform.TableInfo {
	return &platform.TableInfo{
		FullName: testTable,
		Columns: []platform.ColumnInfo{
			{Name: "chunk_id", TypeText: "string"},
			{Name: "content", TypeText: "string"},
			{Name: "doc_uri", TypeText: "string"},
			{Name: "section", TypeText: "string", Comment: "document section"},
			{Name: "year", TypeText: "int"},
		},
	}
}

func testConfig() Config {
	return Config{
		Name:        "search_product_docs",
		Description: "Searches the product documentation.",
		Index:       testIndex,
		Schema: Schema{
			ChunkText:                 "content",
			DocumentURI:               "doc_uri",
			AdditionalMetadataColumns: []string{"section"},
		},
	}
}

func newTestRetriever(t *testing.T, cfg Config, catalog *mockCatalog) *Retriever {
	t.Helper()

	r, err := New(context.Background(), cfg, catalog)
	require.NoError(t, err)

	return r
}

func TestNew_DiscoversPrimaryKeyAndDefaults(t *testing.T) {
	r := newTestRetriever(t, testConfig(), &mockCatalog{})

	cfg := r.Config()
	assert.Equal(t, "chunk_id", cfg.Schema.PrimaryKeyColumn)
	assert.Equal(t, 5, cfg.Parameters.NumResults)
	assert.Equal(t, "ann", cfg.Parameters.QueryType)
	assert.Equal(t, "query to look up in retriever", cfg.QueryParameterPrompt)
	assert.Equal(t, "search_product_docs", r.Name())
	assert.Equal(t, "Searches the product documentation.", r.Description())

	assert.Contains(t, tracing.RetrieverSchemas(), tracing.RetrieverSchema{
		Name:         testIndex,
		PrimaryKey:   "chunk_id",
		TextColumn:   "content",
		DocURI:       "doc_uri",
		OtherColumns: []string{"section"},
	})
}

func TestNew_KeepsConfiguredPrimaryKey(t *testing.T) {
	cfg := testConfig()
	cfg.Schema.PrimaryKeyColumn = "doc_uri"

	r := newTestRetriever(t, cfg, &mockCatalog{})

	assert.Equal(t, "doc_uri", r.Config().Schema.PrimaryKeyColumn)
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		catalog *mockCatalog
		wantErr string
	}{
		{
			name:    "missing index",
			catalog: &mockCatalog{getIndexFunc: notFound},
			wantErr: "Vector search index main.docs.chunks_index does not exist.",
		},
		{
			name: "direct access index",
			catalog: &mockCatalog{getIndexFunc: func(context.Context, string) (*platform.IndexInfo, error) {
				return &platform.IndexInfo{Name: testIndex, IndexType: platform.IndexTypeDirectAccess}, nil
			}},
			wantErr: "Unsupported index type: DIRECT_ACCESS. Only DELTA_SYNC is supported.",
		},
		{
			name:    "unknown filterable column",
			mutate:  func(cfg *Config) { cfg.FilterableColumns = []string{"section", "author"} },
			catalog: &mockCatalog{},
			wantErr: "Column 'author' specified in filterable_columns not found in source table main.docs.chunks. Available columns: chunk_id, content, doc_uri, section, year",
		},
		{
			name: "no primary key anywhere",
			catalog: &mockCatalog{getIndexFunc: func(context.Context, string) (*platform.IndexInfo, error) {
				index := deltaSyncIndex()
				index.PrimaryKey = ""
				return index, nil
			}},
			wantErr: "Could not find primary key in index main.docs.chunks_index",
		},
		{
			name:    "unknown chunk text column",
			mutate:  func(cfg *Config) { cfg.Schema.ChunkText = "body" },
			catalog: &mockCatalog{},
			wantErr: "Column 'body' specified in chunk_text not found in source table main.docs.chunks. Available columns: chunk_id, content, doc_uri, section, year",
		},
		{
			name:    "unknown document uri column",
			mutate:  func(cfg *Config) { cfg.Schema.DocumentURI = "url" },
			catalog: &mockCatalog{},
			wantErr: "Column 'url' specified in document_uri not found in source table main.docs.chunks. Available columns: chunk_id, content, doc_uri, section, year",
		},
		{
			name:    "unknown metadata column",
			mutate:  func(cfg *Config) { cfg.Schema.AdditionalMetadataColumns = []string{"section", "title"} },
			catalog: &mockCatalog{},
			wantErr: "Column 'title' specified in additional_metadata_columns not found in source table main.docs.chunks. Available columns: chunk_id, content, doc_uri, section, year",
		},
		{
			name:    "threshold above one",
			mutate:  func(cfg *Config) { cfg.DocSimilarityThreshold = 1.5 },
			catalog: &mockCatalog{},
			wantErr: "doc_similarity_threshold must be between 0 and 1",
		},
		{
			name:    "threshold below zero",
			mutate:  func(cfg *Config) { cfg.DocSimilarityThreshold = -0.1 },
			catalog: &mockCatalog{},
			wantErr: "doc_similarity_threshold must be between 0 and 1",
		},
		{
			name:    "threshold not a number",
			mutate:  func(cfg *Config) { cfg.DocSimilarityThreshold = math.NaN() },
			catalog: &mockCatalog{},
			wantErr: "doc_similarity_threshold must be between 0 and 1",
		},
		{
			name:    "two-part index name",
			mutate:  func(cfg *Config) { cfg.Index = "docs.chunks_index" },
			catalog: &mockCatalog{},
			wantErr: `vector_search_index must be a three-part name catalog.schema.index, got "docs.chunks_index"`,
		},
		{
			name:    "unsupported query type",
			mutate:  func(cfg *Config) { cfg.Parameters.QueryType = "fuzzy" },
			catalog: &mockCatalog{},
			wantErr: `vector_search_parameters.query_type must be 'ann' or 'hybrid', got "fuzzy"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			_, err := New(context.Background(), cfg, tt.catalog)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)

			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestNew_UpstreamFailureIsNotValidation(t *testing.T) {
	catalog := &mockCatalog{getIndexFunc: func(context.Context, string) (*platform.IndexInfo, error) {
		return nil, &platform.APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}
	}}

	_, err := New(context.Background(), testConfig(), catalog)

	require.Error(t, err)
	var validation *ValidationError
	assert.False(t, errors.As(err, &validation))
	assert.Contains(t, err.Error(), "failed to check index")
}

func notFound(context.Context, string) (*platform.IndexInfo, error) {
	return nil, &platform.APIError{StatusCode: http.StatusNotFound, ErrorCode: "RESOURCE_DOES_NOT_EXIST", Message: "not found"}
}

func TestSearch_BuildsQueryRequest(t *testing.T) {
	var got platform.QueryRequest
	catalog := &mockCatalog{queryIndexFunc: func(_ context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
		got = req
		return queryResponse(
			[]any{"c1", "Delta Lake is a storage layer.", "docs/delta.pdf", "intro", 0.91},
		), nil
	}}

	cfg := testConfig()
	cfg.FilterableColumns = []string{"section"}
	cfg.Parameters.QueryType = "hybrid"
	cfg.Parameters.NumResults = 3

	r := newTestRetriever(t, cfg, catalog)

	docs, err := r.Search(context.Background(), "what is delta lake", []FilterItem{
		{Field: "section", Filter: []any{"intro", "setup"}},
	})
	require.NoError(t, err)

	assert.Equal(t, testIndex, got.IndexName)
	assert.Equal(t, "what is delta lake", got.QueryText)
	assert.Equal(t, []string{"chunk_id", "content", "doc_uri", "section"}, got.Columns)
	assert.Equal(t, 3, got.NumResults)
	assert.Equal(t, "HYBRID", got.QueryType)
	assert.JSONEq(t, `{"section": {"OR": ["intro", "setup"]}}`, got.FiltersJSON)

	require.Len(t, docs, 1)
	assert.Equal(t, "c1", docs[0].ID)
	assert.Equal(t, "Delta Lake is a storage layer.", docs[0].PageContent)
	assert.Equal(t, "intro", docs[0].Metadata["section"])
}

func TestSearch_NoFiltersOmitsFilterJSON(t *testing.T) {
	var got platform.QueryRequest
	catalog := &mockCatalog{queryIndexFunc: func(_ context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
		got = req
		return queryResponse(), nil
	}}

	r := newTestRetriever(t, testConfig(), catalog)

	docs, err := r.Search(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, got.FiltersJSON)
	assert.Equal(t, "ANN", got.QueryType)
}

func TestSearch_QueryError(t *testing.T) {
	catalog := &mockCatalog{queryIndexFunc: func(context.Context, platform.QueryRequest) (*platform.QueryResponse, error) {
		return nil, errors.New("connection reset")
	}}

	r := newTestRetriever(t, testConfig(), catalog)

	_, err := r.Search(context.Background(), "anything", nil)
	assert.EqualError(t, err, "connection reset")
}

func TestExecute(t *testing.T) {
	cfg := testConfig()
	cfg.FilterableColumns = []string{"section"}

	r := newTestRetriever(t, cfg, &mockCatalog{queryIndexFunc: func(context.Context, platform.QueryRequest) (*platform.QueryResponse, error) {
		return queryResponse([]any{"c1", "text", "uri", "intro", 0.8}), nil
	}})

	out, err := r.Execute(context.Background(), json.RawMessage(`{"query": "setup", "filters": [{"field": "section", "filter": "intro"}]}`))
	require.NoError(t, err)

	docs, ok := out.([]Document)
	require.True(t, ok)
	assert.Len(t, docs, 1)
}

func TestExecute_ArgumentErrors(t *testing.T) {
	cfg := testConfig()
	cfg.FilterableColumns = []string{"section"}
	withFilters := newTestRetriever(t, cfg, &mockCatalog{})
	withoutFilters := newTestRetriever(t, testConfig(), &mockCatalog{})

	tests := []struct {
		name      string
		retriever *Retriever
		args      string
		wantErr   string
	}{
		{
			name:      "malformed json",
			retriever: withFilters,
			args:      `{"query":`,
			wantErr:   "invalid arguments",
		},
		{
			name:      "missing query",
			retriever: withFilters,
			args:      `{"query": "  "}`,
			wantErr:   "query is required",
		},
		{
			name:      "filters on a tool without filterable columns",
			retriever: withoutFilters,
			args:      `{"query": "x", "filters": [{"field": "section", "filter": "intro"}]}`,
			wantErr:   "tool search_product_docs does not accept filters",
		},
		{
			name:      "field not filterable",
			retriever: withFilters,
			args:      `{"query": "x", "filters": [{"field": "year", "filter": 2020}]}`,
			wantErr:   `field "year" is not filterable; use one of: section`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.retriever.Execute(context.Background(), json.RawMessage(tt.args))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestParametersSchema(t *testing.T) {
	cfg := testConfig()
	cfg.FilterableColumns = []string{"section", "year"}

	r := newTestRetriever(t, cfg, &mockCatalog{})
	schema := r.ParametersSchema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"query"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])

	properties := schema["properties"].(map[string]any)
	query := properties["query"].(map[string]any)
	assert.Equal(t, "query to look up in retriever", query["description"])

	filters := properties["filters"].(map[string]any)
	assert.Equal(t, "array", filters["type"])

	field := filters["items"].(map[string]any)["properties"].(map[string]any)["field"].(map[string]any)
	assert.Equal(t, []string{"section", "year"}, field["enum"])

	want := "The fields to apply the filter to.  Can use any of the following as filters, where each is (`field_name`, field_type, 'field_description'): " +
		"(`section`, string, 'document section'), (`year`, int" +
		"For string fields, only use LIKE filter; for numeric fields, either provide a number to achieve == or use <, <=, >, >= filters; for array fields, either provide an array of 1+ values to achieve IN or use NOT to exclude."
	if diff := cmp.Diff(want, field["description"]); diff != "" {
		t.Errorf("field description mismatch (-want +got):\n%s", diff)
	}
}

func TestParametersSchema_WithoutFilterableColumns(t *testing.T) {
	r := newTestRetriever(t, testConfig(), &mockCatalog{})

	properties := r.ParametersSchema()["properties"].(map[string]any)

	assert.Contains(t, properties, "query")
	assert.NotContains(t, properties, "filters")
}

func TestFilterableColumnsDescriptions(t *testing.T) {
	cfg := testConfig()
	cfg.FilterableColumns = []string{"section", "year"}
	catalog := &mockCatalog{}

	r := newTestRetriever(t, cfg, catalog)

	assert.Equal(t, "(`section`, string, 'document section'), (`year`, int", r.FilterableColumnsDescriptions(context.Background()))

	catalog.getIndexFunc = notFound
	assert.Equal(t, "section, year", r.FilterableColumnsDescriptions(context.Background()))
}

func TestDescribeColumns_UnknownColumn(t *testing.T) {
	got := describeColumns([]string{"missing"}, sourceTable())

	assert.Equal(t, "(`missing`, unknown", got)
}

func TestResourceDependencies(t *testing.T) {
	r := newTestRetriever(t, testConfig(), &mockCatalog{})

	deps, err := r.ResourceDependencies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []tools.Resource{
		{Type: tools.ResourceVectorSearchIndex, Name: testIndex},
		{Type: tools.ResourceServingEndpoint, Name: "databricks-gte-large-en"},
	}, deps)
}

func TestResourceDependencies_MissingEmbeddingEndpoint(t *testing.T) {
	catalog := &mockCatalog{}
	r := newTestRetriever(t, testConfig(), catalog)

	catalog.getIndexFunc = func(context.Context, string) (*platform.IndexInfo, error) {
		index := deltaSyncIndex()
		index.DeltaSyncIndexSpec.EmbeddingSourceColumns[0].EmbeddingModelEndpointName = ""
		return index, nil
	}

	_, err := r.ResourceDependencies(context.Background())
	assert.EqualError(t, err, "Could not identify the embedding model endpoint resource for main.docs.chunks_index.  Please manually add the embedding model endpoint to `databricks_resources`.")
}

func TestRegister(t *testing.T) {
	agentCfg, err := config.ParseAgentConfig([]byte(`
llm_config:
  llm_endpoint_name: databricks-meta-llama-3-70b-instruct
tools:
  - name: search_product_docs
    description: Searches the product documentation.
    vector_search_index: main.docs.chunks_index
    vector_search_schema:
      chunk_text: content
      document_uri: doc_uri
    vector_search_parameters:
      num_results: 2
`))
	require.NoError(t, err)

	registry := tools.NewRegistry()
	Register(registry, &mockCatalog{})

	set, err := registry.Build(context.Background(), agentCfg.Tools)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	tool, ok := set.Get("search_product_docs")
	require.True(t, ok)

	r, ok := tool.(*Retriever)
	require.True(t, ok)
	assert.Equal(t, 2, r.Config().Parameters.NumResults)
	assert.Equal(t, "chunk_id", r.Config().Schema.PrimaryKeyColumn)
}
