package platform

import (
	"context"
	"fmt"
)

const (
	IndexTypeDeltaSync    = "DELTA_SYNC"
	IndexTypeDirectAccess = "DIRECT_ACCESS"

	QueryTypeANN    = "ANN"
	QueryTypeHybrid = "HYBRID"
)

type EmbeddingSourceColumn struct {
	Name                       string `json:"name"`
	EmbeddingModelEndpointName string `json:"embedding_model_endpoint_name,omitempty"`
}

type DeltaSyncIndexSpec struct {
	SourceTable            string                  `json:"source_table"`
	PipelineType           string                  `json:"pipeline_type,omitempty"`
	EmbeddingSourceColumns []EmbeddingSourceColumn `json:"embedding_source_columns,omitempty"`
}

type IndexStatus struct {
	Ready           bool   `json:"ready"`
	Message         string `json:"message,omitempty"`
	IndexedRowCount int64  `json:"indexed_row_count,omitempty"`
}

type IndexInfo struct {
	Name               string              `json:"name"`
	EndpointName       string              `json:"endpoint_name"`
	PrimaryKey         string              `json:"primary_key"`
	IndexType          string              `json:"index_type"`
	DeltaSyncIndexSpec *DeltaSyncIndexSpec `json:"delta_sync_index_spec,omitempty"`
	Status             *IndexStatus        `json:"status,omitempty"`
}

type QueryRequest struct {
	IndexName   string    `json:"-"`
	QueryText   string    `json:"query_text,omitempty"`
	QueryVector []float32 `json:"query_vector,omitempty"`
	Columns     []string  `json:"columns"`
	FiltersJSON string    `json:"filters_json,omitempty"`
	NumResults  int       `json:"num_results"`
	QueryType   string    `json:"query_type,omitempty"`
}

type ManifestColumn struct {
	Name string `json:"name"`
}

type ResultManifest struct {
	ColumnCount int              `json:"column_count"`
	Columns     []ManifestColumn `json:"columns"`
}

type ResultData struct {
	RowCount  int     `json:"row_count"`
	DataArray [][]any `json:"data_array"`
}

// query response; the last element of every row is the similarity score
type QueryResponse struct {
	Manifest ResultManifest `json:"manifest"`
	Result   ResultData     `json:"result"`
}

// fetches vector search index metadata by its three-part name
func (c *Client) GetIndex(ctx context.Context, name string) (*IndexInfo, error) {
	var info IndexInfo
	if err := c.get(ctx, "/api/2.0/vector-search/indexes/"+escape(name), nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get index %s: %w", name, err)
	}

	return &info, nil
}

// runs a similarity query against an index
func (c *Client) QueryIndex(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	var resp QueryResponse
	if err := c.post(ctx, "/api/2.0/vector-search/indexes/"+escape(req.IndexName)+"/query", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to query index %s: %w", req.IndexName, err)
	}

	return &resp, nil
}
