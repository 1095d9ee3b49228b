package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tracing"
)

// vector search metadata and query surface; implemented by the platform
// client, the pgvector backend and the caching decorator
type Catalog interface {
	GetIndex(ctx context.Context, name string) (*platform.IndexInfo, error)
	GetTable(ctx context.Context, fullName string) (*platform.TableInfo, error)
	QueryIndex(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error)
}

// vector search retriever exposed as an LLM tool
type Retriever struct {
	cfg     Config
	catalog Catalog

	sourceTableName    string
	columnDescriptions string
}

// builds the retriever and validates it against index and table metadata
func New(ctx context.Context, cfg Config, catalog Catalog) (*Retriever, error) {
	cfg.applyDefaults()

	if err := cfg.validateFields(); err != nil {
		return nil, err
	}

	r := &Retriever{cfg: cfg, catalog: catalog}

	if err := r.validate(ctx); err != nil {
		return nil, err
	}

	tracing.SetRetrieverSchema(tracing.RetrieverSchema{
		Name:         r.cfg.Index,
		PrimaryKey:   r.cfg.Schema.PrimaryKeyColumn,
		TextColumn:   r.cfg.Schema.ChunkText,
		DocURI:       r.cfg.Schema.DocumentURI,
		OtherColumns: r.cfg.Schema.AdditionalMetadataColumns,
	})

	return r, nil
}

func (r *Retriever) validate(ctx context.Context) error {
	index, err := r.catalog.GetIndex(ctx, r.cfg.Index)
	if platform.IsNotFound(err) {
		return invalidf("Vector search index %s does not exist.", r.cfg.Index)
	}
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", r.cfg.Index, err)
	}

	table, columns, err := r.sourceTable(ctx, index)
	if err != nil {
		return err
	}

	r.sourceTableName = index.DeltaSyncIndexSpec.SourceTable

	if err := r.columnsExist(r.cfg.FilterableColumns, columns, "filterable_columns"); err != nil {
		return err
	}

	if r.cfg.Schema.PrimaryKeyColumn == "" {
		if index.PrimaryKey == "" {
			return invalidf("Could not find primary key in index %s", r.cfg.Index)
		}

		r.cfg.Schema.PrimaryKeyColumn = index.PrimaryKey
	}

	checks := []columnCheck{
		{r.cfg.Schema.ChunkText, "chunk_text"},
		{r.cfg.Schema.DocumentURI, "document_uri"},
	}

	for _, col := range r.cfg.Schema.AdditionalMetadataColumns {
		checks = append(checks, columnCheck{col, "additional_metadata_columns"})
	}

	for _, check := range checks {
		if err := r.columnsExist([]string{check.column}, columns, check.field); err != nil {
			return err
		}
	}

	threshold := r.cfg.DocSimilarityThreshold
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return invalidf("doc_similarity_threshold must be between 0 and 1")
	}

	r.columnDescriptions = describeColumns(r.cfg.FilterableColumns, table)

	return nil
}

// fetches the delta sync source table and its column names
func (r *Retriever) sourceTable(ctx context.Context, index *platform.IndexInfo) (*platform.TableInfo, map[string]bool, error) {
	if index.IndexType != platform.IndexTypeDeltaSync {
		return nil, nil, invalidf("Unsupported index type: %s. Only DELTA_SYNC is supported.", index.IndexType)
	}

	if index.DeltaSyncIndexSpec == nil || index.DeltaSyncIndexSpec.SourceTable == "" {
		return nil, nil, fmt.Errorf("index %s has no delta sync source table", r.cfg.Index)
	}

	source := index.DeltaSyncIndexSpec.SourceTable

	table, err := r.catalog.GetTable(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source table %s: %w", source, err)
	}

	columns := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = true
	}

	return table, columns, nil
}

type columnCheck struct {
	column string
	field  string
}

func (r *Retriever) columnsExist(cols []string, tableColumns map[string]bool, field string) error {
	for _, col := range cols {
		if tableColumns[col] {
			continue
		}

		available := make([]string, 0, len(tableColumns))
		for c := range tableColumns {
			available = append(available, c)
		}
		slices.Sort(available)

		return invalidf("Column '%s' specified in %s not found in source table %s. Available columns: %s",
			col, field, r.sourceTableName, strings.Join(available, ", "))
	}

	return nil
}

func (r *Retriever) Name() string {
	return r.cfg.Name
}

func (r *Retriever) Description() string {
	return r.cfg.Description
}

// validated configuration, including the discovered primary key
func (r *Retriever) Config() Config {
	return r.cfg
}

// runs a similarity search; filters may be empty
func (r *Retriever) Search(ctx context.Context, query string, filters []FilterItem) (docs []Document, err error) {
	ctx, span := tracing.Start(ctx, "vector_search_retriever", tracing.SpanTypeRetriever)
	span.SetAttributes(map[string]any{"vector_search_index": r.cfg.Index})
	span.SetInputs(map[string]any{"query": query, "filters": filters})

	defer func() {
		if err == nil {
			span.SetOutputs(docs)
		}
		span.End(err)
	}()

	var filtersJSON string
	if len(filters) > 0 {
		parsed, err := parseFiltersTraced(ctx, filters)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}

		filtersJSON = string(data)
	}

	resp, err := r.query(ctx, platform.QueryRequest{
		IndexName:   r.cfg.Index,
		QueryText:   query,
		Columns:     r.cfg.Schema.AllColumns(),
		FiltersJSON: filtersJSON,
		NumResults:  r.cfg.Parameters.NumResults,
		QueryType:   strings.ToUpper(r.cfg.Parameters.QueryType),
	})
	if err != nil {
		return nil, err
	}

	return convertTraced(ctx, resp, r.cfg.Schema, r.cfg.DocSimilarityThreshold)
}

func (r *Retriever) query(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
	ctx, span := tracing.Start(ctx, "query_index", tracing.SpanTypeFunction)
	span.SetInputs(req)

	resp, err := r.catalog.QueryIndex(ctx, req)
	span.End(err)

	return resp, err
}

type searchArgs struct {
	Query   string       `json:"query"`
	Filters []FilterItem `json:"filters,omitempty"`
}

// tool entry point; args follow ParametersSchema
func (r *Retriever) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in searchArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, invalidf("invalid arguments: %v", err)
	}

	if strings.TrimSpace(in.Query) == "" {
		return nil, invalidf("query is required")
	}

	if len(in.Filters) > 0 && len(r.cfg.FilterableColumns) == 0 {
		return nil, invalidf("tool %s does not accept filters", r.cfg.Name)
	}

	for _, f := range in.Filters {
		if f.Field != "" && !slices.Contains(r.cfg.FilterableColumns, f.Field) {
			return nil, invalidf("field %q is not filterable; use one of: %s", f.Field, strings.Join(r.cfg.FilterableColumns, ", "))
		}
	}

	return r.Search(ctx, in.Query, in.Filters)
}
