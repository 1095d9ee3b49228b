package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/tracing"
)

// metadata key holding the row's score
const SimilarityScoreKey = "similarity_score"

// retrieved chunk
type Document struct {
	ID          string         `json:"id"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// converts a query response into documents; rows scoring below threshold
// are skipped
func ConvertToDocuments(resp *platform.QueryResponse, schema Schema, threshold float64) ([]Document, error) {
	docs := []Document{}

	if resp == nil || resp.Result.RowCount <= 0 {
		return docs, nil
	}

	primaryKey, err := schema.PrimaryKey()
	if err != nil {
		return nil, err
	}

	columns := resp.Manifest.Columns

	for r, row := range resp.Result.DataArray {
		if len(row) == 0 {
			return nil, fmt.Errorf("row %d is empty", r)
		}

		fields := row[:len(row)-1]
		if len(fields) > len(columns) {
			return nil, fmt.Errorf("row %d has %d values but the manifest lists %d columns", r, len(row), len(columns))
		}

		score, err := toFloat(row[len(row)-1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid score: %w", r, err)
		}

		if score < threshold {
			continue
		}

		metadata := make(map[string]any, len(fields)+1)
		metadata[SimilarityScoreKey] = score

		for i, value := range fields {
			metadata[columns[i].Name] = value
		}

		content, ok := metadata[schema.ChunkText]
		if !ok {
			return nil, fmt.Errorf("chunk text column %q missing from response", schema.ChunkText)
		}
		delete(metadata, schema.ChunkText)

		id, ok := metadata[primaryKey]
		if !ok {
			return nil, fmt.Errorf("primary key column %q missing from response", primaryKey)
		}
		delete(metadata, primaryKey)

		docs = append(docs, Document{
			ID:          stringify(id),
			PageContent: stringify(content),
			Metadata:    metadata,
		})
	}

	return docs, nil
}

// ConvertToDocuments wrapped in a PARSER span
func convertTraced(ctx context.Context, resp *platform.QueryResponse, schema Schema, threshold float64) ([]Document, error) {
	_, span := tracing.Start(ctx, "convert_vector_search_to_documents", tracing.SpanTypeParser)

	docs, err := ConvertToDocuments(resp, schema, threshold)
	if err == nil {
		span.SetOutputs(docs)
	}

	span.End(err)

	return docs, err
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected score type %T", v)
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
