package tracing

import (
	"cmp"
	"slices"
	"sync"
)

// describes how retriever output maps to document fields, so the
// tracking UI can render retrieved chunks
type RetrieverSchema struct {
	Name         string   `json:"name"`
	PrimaryKey   string   `json:"primary_key"`
	TextColumn   string   `json:"text_column"`
	DocURI       string   `json:"doc_uri"`
	OtherColumns []string `json:"other_columns,omitempty"`
}

var (
	schemasMu sync.RWMutex
	schemas   = map[string]RetrieverSchema{}
)

// registers (or replaces) the schema for a retriever
func SetRetrieverSchema(schema RetrieverSchema) {
	schemasMu.Lock()
	defer schemasMu.Unlock()

	schemas[schema.Name] = schema
}

// returns registered schemas ordered by name
func RetrieverSchemas() []RetrieverSchema {
	schemasMu.RLock()
	defer schemasMu.RUnlock()

	out := make([]RetrieverSchema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s)
	}

	slices.SortFunc(out, func(a, b RetrieverSchema) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return out
}
