package vectorsearch

import (
	"fmt"
	"strings"
)

const (
	defaultNumResults            = 5
	defaultQueryType             = "ann"
	defaultQueryParameterPrompt  = "query to look up in retriever"
	defaultFilterParameterPrompt = "optional filters to apply to the search. An array of objects, each specifying a field name and the filters to apply to that field."
)

// columns of the index response and how they map onto documents
type Schema struct {
	// discovered from the index when empty
	PrimaryKeyColumn          string   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	ChunkText                 string   `yaml:"chunk_text" json:"chunk_text"`
	DocumentURI               string   `yaml:"document_uri" json:"document_uri"`
	AdditionalMetadataColumns []string `yaml:"additional_metadata_columns,omitempty" json:"additional_metadata_columns,omitempty"`
}

func (s Schema) PrimaryKey() (string, error) {
	if s.PrimaryKeyColumn == "" {
		return "", fmt.Errorf("primary_key must be set by the retriever configuration")
	}

	return s.PrimaryKeyColumn, nil
}

// primary key, chunk text, document uri and additional columns,
// de-duplicated in first-occurrence order
func (s Schema) AllColumns() []string {
	candidates := append([]string{s.PrimaryKeyColumn, s.ChunkText, s.DocumentURI}, s.AdditionalMetadataColumns...)

	seen := make(map[string]bool, len(candidates))
	cols := make([]string, 0, len(candidates))

	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}

		seen[c] = true
		cols = append(cols, c)
	}

	return cols
}

type Parameters struct {
	NumResults int    `yaml:"num_results" json:"num_results"`
	QueryType  string `yaml:"query_type" json:"query_type"` // ann | hybrid
}

// retriever tool configuration, decoded from a `tools` entry
type Config struct {
	Name                   string     `yaml:"name" json:"name"`
	Description            string     `yaml:"description" json:"description"`
	Index                  string     `yaml:"vector_search_index" json:"vector_search_index"`
	FilterableColumns      []string   `yaml:"filterable_columns,omitempty" json:"filterable_columns,omitempty"`
	Schema                 Schema     `yaml:"vector_search_schema" json:"vector_search_schema"`
	DocSimilarityThreshold float64    `yaml:"doc_similarity_threshold" json:"doc_similarity_threshold"`
	Parameters             Parameters `yaml:"vector_search_parameters" json:"vector_search_parameters"`
	QueryParameterPrompt   string     `yaml:"retriever_query_parameter_prompt,omitempty" json:"retriever_query_parameter_prompt,omitempty"`
	FilterParameterPrompt  string     `yaml:"retriever_filter_parameter_prompt,omitempty" json:"retriever_filter_parameter_prompt,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.Parameters.NumResults == 0 {
		c.Parameters.NumResults = defaultNumResults
	}
	if c.Parameters.QueryType == "" {
		c.Parameters.QueryType = defaultQueryType
	}
	if c.QueryParameterPrompt == "" {
		c.QueryParameterPrompt = defaultQueryParameterPrompt
	}
	if c.FilterParameterPrompt == "" {
		c.FilterParameterPrompt = defaultFilterParameterPrompt
	}
}

// field-level checks that need no remote metadata
func (c *Config) validateFields() error {
	switch {
	case c.Name == "":
		return invalidf("name is required")
	case c.Description == "":
		return invalidf("description is required")
	case c.Index == "":
		return invalidf("vector_search_index is required")
	case len(strings.Split(c.Index, ".")) != 3:
		return invalidf("vector_search_index must be a three-part name catalog.schema.index, got %q", c.Index)
	case c.Schema.ChunkText == "":
		return invalidf("vector_search_schema.chunk_text is required")
	case c.Schema.DocumentURI == "":
		return invalidf("vector_search_schema.document_uri is required")
	case c.Parameters.NumResults < 0:
		return invalidf("vector_search_parameters.num_results must be positive, got %d", c.Parameters.NumResults)
	case c.Parameters.QueryType != "ann" && c.Parameters.QueryType != "hybrid":
		return invalidf("vector_search_parameters.query_type must be 'ann' or 'hybrid', got %q", c.Parameters.QueryType)
	}

	return nil
}

// error describing bad configuration or bad tool arguments
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// marks the error as caused by caller input
func (e *ValidationError) InvalidArgument() bool {
	return true
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
