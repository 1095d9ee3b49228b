package vectorsearch

import (
	"testing"

	"codeberg.org/ragcookbook/server/internal/platform"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		PrimaryKeyColumn:          "chunk_id",
		ChunkText:                 "content",
		DocumentURI:               "doc_uri",
		AdditionalMetadataColumns: []string{"section"},
	}
}

func queryResponse(rows ...[]any) *platform.QueryResponse {
	return &platform.QueryResponse{
		Manifest: platform.ResultManifest{
			ColumnCount: 5,
			Columns: []platform.ManifestColumn{
				{Name: "chunk_id"}, {Name: "content"}, {Name: "doc_uri"}, {Name: "section"}, {Name: "score"},
			},
		},
		Result: platform.ResultData{RowCount: len(rows), DataArray: rows},
	}
}

func TestConvertToDocuments(t *testing.T) {
	resp := queryResponse(
		[]any{"c1", "Delta Lake is a storage layer.", "docs/delta.pdf", "intro", 0.91},
		[]any{float64(7), "Unrelated text.", "docs/other.pdf", "misc", 0.2},
		[]any{"c3", "Tables support time travel.", "docs/delta.pdf", "features", 0.5},
	)

	docs, err := ConvertToDocuments(resp, testSchema(), 0.5)
	require.NoError(t, err)

	want := []Document{
		{
			ID:          "c1",
			PageContent: "Delta Lake is a storage layer.",
			Metadata:    map[string]any{"doc_uri": "docs/delta.pdf", "section": "intro", SimilarityScoreKey: 0.91},
		},
		{
			ID:          "c3",
			PageContent: "Tables support time travel.",
			Metadata:    map[string]any{"doc_uri": "docs/delta.pdf", "section": "features", SimilarityScoreKey: 0.5},
		},
	}

	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("ConvertToDocuments() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertToDocuments_NumericID(t *testing.T) {
	docs, err := ConvertToDocuments(queryResponse([]any{float64(42), "text", "uri", "s", 0.9}), testSchema(), 0)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "42", docs[0].ID)
}

func TestConvertToDocuments_NoRows(t *testing.T) {
	resp := queryResponse()
	resp.Result.DataArray = [][]any{{"ignored", "x", "y", "z", 1.0}}
	resp.Result.RowCount = 0

	docs, err := ConvertToDocuments(resp, testSchema(), 0)

	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)

	docs, err = ConvertToDocuments(nil, testSchema(), 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestConvertToDocuments_Errors(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		resp    *platform.QueryResponse
		wantErr string
	}{
		{
			name:    "primary key unset",
			schema:  Schema{ChunkText: "content", DocumentURI: "doc_uri"},
			resp:    queryResponse([]any{"c1", "t", "u", "s", 0.9}),
			wantErr: "primary_key must be set",
		},
		{
			name:    "chunk text column missing",
			schema:  Schema{PrimaryKeyColumn: "chunk_id", ChunkText: "body", DocumentURI: "doc_uri"},
			resp:    queryResponse([]any{"c1", "t", "u", "s", 0.9}),
			wantErr: `chunk text column "body" missing`,
		},
		{
			name:    "primary key column missing",
			schema:  Schema{PrimaryKeyColumn: "id", ChunkText: "content", DocumentURI: "doc_uri"},
			resp:    queryResponse([]any{"c1", "t", "u", "s", 0.9}),
			wantErr: `primary key column "id" missing`,
		},
		{
			name:    "empty row",
			schema:  testSchema(),
			resp:    queryResponse([]any{}),
			wantErr: "row 0 is empty",
		},
		{
			name:    "bad score",
			schema:  testSchema(),
			resp:    queryResponse([]any{"c1", "t", "u", "s", true}),
			wantErr: "invalid score",
		},
		{
			name:    "row wider than manifest",
			schema:  testSchema(),
			resp:    queryResponse([]any{"c1", "t", "u", "s", "extra", "more", 0.9}),
			wantErr: "manifest lists 5 columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConvertToDocuments(tt.resp, tt.schema, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchema_AllColumns(t *testing.T) {
	s := Schema{
		PrimaryKeyColumn:          "id",
		ChunkText:                 "content",
		DocumentURI:               "uri",
		AdditionalMetadataColumns: []string{"section", "content", "id", "year"},
	}

	assert.Equal(t, []string{"id", "content", "uri", "section", "year"}, s.AllColumns())

	_, err := Schema{}.PrimaryKey()
	assert.Error(t, err)
}
