package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

const (
	DefaultTextColumn = "content"
	scoreColumn       = "score"
	vectorTypeName    = "vector"
)

// serves the retriever's catalog contract from postgres tables with a
// pgvector column. an index named catalog.schema.table is backed by the
// table of the same name and is its own delta sync source
type Backend struct {
	client            *Client
	embedder          llm.Embedder
	embeddingEndpoint string
	textColumn        string

	mu      sync.Mutex
	indexes map[string]*indexLayout
}

type indexLayout struct {
	table        TableName
	primaryKey   string
	vectorColumn string
}

func NewBackend(client *Client, embedder llm.Embedder, embeddingEndpoint string) *Backend {
	return &Backend{
		client:            client,
		embedder:          embedder,
		embeddingEndpoint: embeddingEndpoint,
		textColumn:        DefaultTextColumn,
		indexes:           make(map[string]*indexLayout),
	}
}

func (b *Backend) GetIndex(ctx context.Context, name string) (*platform.IndexInfo, error) {
	layout, err := b.layout(ctx, name)
	if err != nil {
		return nil, err
	}

	return &platform.IndexInfo{
		Name:       name,
		PrimaryKey: layout.primaryKey,
		IndexType:  platform.IndexTypeDeltaSync,
		DeltaSyncIndexSpec: &platform.DeltaSyncIndexSpec{
			SourceTable:  layout.table.String(),
			PipelineType: "TRIGGERED",
			EmbeddingSourceColumns: []platform.EmbeddingSourceColumn{{
				Name:                       b.textColumn,
				EmbeddingModelEndpointName: b.embeddingEndpoint,
			}},
		},
		Status: &platform.IndexStatus{Ready: true},
	}, nil
}

func (b *Backend) GetTable(ctx context.Context, fullName string) (*platform.TableInfo, error) {
	table, err := ParseTableName(fullName)
	if err != nil {
		return nil, err
	}

	columns, err := b.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, notFound("table", fullName)
	}

	var comment string
	if err := b.client.pool.QueryRow(ctx, tableCommentQuery, table.Schema, table.Table).Scan(&comment); err != nil {
		return nil, fmt.Errorf("failed to read comment of %s: %w", fullName, err)
	}

	return &platform.TableInfo{
		Name:        table.Table,
		CatalogName: table.Catalog,
		SchemaName:  table.Schema,
		FullName:    table.String(),
		TableType:   "MANAGED",
		Comment:     comment,
		Columns:     columns,
	}, nil
}

// embeds the query text and ranks rows by cosine similarity, fused with a
// full-text ranking for HYBRID queries. the score column is appended last,
// like the managed service does
func (b *Backend) QueryIndex(ctx context.Context, req platform.QueryRequest) (*platform.QueryResponse, error) {
	layout, err := b.layout(ctx, req.IndexName)
	if err != nil {
		return nil, err
	}

	if len(req.Columns) == 0 {
		return nil, fmt.Errorf("query of %s requests no columns", req.IndexName)
	}

	vector := req.QueryVector
	if len(vector) == 0 {
		if vector, err = b.embedder.GenerateEmbedding(ctx, req.QueryText); err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	query, args, err := b.query(layout, req)
	if err != nil {
		return nil, err
	}

	args = append([]any{pgvector.NewVector(vector)}, args...)

	rows, err := b.client.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	resp := &platform.QueryResponse{}

	for _, col := range req.Columns {
		resp.Manifest.Columns = append(resp.Manifest.Columns, platform.ManifestColumn{Name: col})
	}

	resp.Manifest.Columns = append(resp.Manifest.Columns, platform.ManifestColumn{Name: scoreColumn})
	resp.Manifest.ColumnCount = len(resp.Manifest.Columns)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]any, len(values))
		for i, v := range values {
			row[i] = jsonValue(v)
		}

		resp.Result.DataArray = append(resp.Result.DataArray, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	resp.Result.RowCount = len(resp.Result.DataArray)

	return resp, nil
}

func (b *Backend) query(layout *indexLayout, req platform.QueryRequest) (string, []any, error) {
	if req.QueryType != platform.QueryTypeHybrid {
		return searchQuery(layout, req)
	}

	if layout.primaryKey == "" || req.QueryText == "" {
		logger.Debug("hybrid query needs a primary key and query text, using ANN", "index", req.IndexName)
		return searchQuery(layout, req)
	}

	return hybridQuery(layout, b.textColumn, req)
}

// $1 is always the query vector; filter placeholders follow and the limit
// comes last
func searchQuery(layout *indexLayout, req platform.QueryRequest) (string, []any, error) {
	where, args, err := whereClause(req.FiltersJSON, 2)
	if err != nil {
		return "", nil, err
	}

	selected := make([]string, len(req.Columns))
	for i, col := range req.Columns {
		selected[i] = pgx.Identifier{col}.Sanitize()
	}

	distance := pgx.Identifier{layout.vectorColumn}.Sanitize() + " <=> $1::vector"

	var sb strings.Builder

	fmt.Fprintf(&sb, "SELECT %s, 1 - (%s) AS %s FROM %s",
		strings.Join(selected, ", "), distance, scoreColumn, layout.table.Sanitize())

	if where != "" {
		sb.WriteString(" WHERE " + where)
	}

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	args = append(args, numResults)
	fmt.Fprintf(&sb, " ORDER BY %s LIMIT $%d", distance, len(args)+1)

	return sb.String(), args, nil
}

// resolves and memoizes the table behind an index
func (b *Backend) layout(ctx context.Context, name string) (*indexLayout, error) {
	b.mu.Lock()
	cached, ok := b.indexes[name]
	b.mu.Unlock()

	if ok {
		return cached, nil
	}

	table, err := ParseTableName(name)
	if err != nil {
		return nil, err
	}

	columns, err := b.columns(ctx, table)
	if err != nil {
		return nil, err
	}

	layout := &indexLayout{table: table}

	for _, col := range columns {
		if col.TypeName == vectorTypeName {
			layout.vectorColumn = col.Name
			break
		}
	}

	if layout.vectorColumn == "" {
		return nil, notFound("index", name)
	}

	err = b.client.pool.QueryRow(ctx, primaryKeyQuery, table.Schema, table.Table).Scan(&layout.primaryKey)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", name, err)
	}

	b.mu.Lock()
	b.indexes[name] = layout
	b.mu.Unlock()

	return layout, nil
}

func (b *Backend) columns(ctx context.Context, table TableName) ([]platform.ColumnInfo, error) {
	rows, err := b.client.pool.Query(ctx, tableColumnsQuery, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	var columns []platform.ColumnInfo

	for rows.Next() {
		var col platform.ColumnInfo

		if err := rows.Scan(&col.Name, &col.TypeText, &col.TypeName, &col.Nullable, &col.Position, &col.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// lets platform.IsNotFound treat a missing relation like the managed API does
func notFound(kind, name string) error {
	return &platform.APIError{
		StatusCode: http.StatusNotFound,
		ErrorCode:  "RESOURCE_DOES_NOT_EXIST",
		Message:    fmt.Sprintf("%s %s does not exist", kind, name),
	}
}

// converts pgx row values into plain JSON-friendly values
func jsonValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}

		return f.Float64
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	}

	return v
}
