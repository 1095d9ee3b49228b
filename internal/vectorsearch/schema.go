package vectorsearch

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/ragcookbook/server/internal/platform"
)

const (
	fieldDescriptionPrefix = "The fields to apply the filter to.  Can use any of the following as filters, where each is (`field_name`, field_type, 'field_description'): "
	fieldDescriptionSuffix = "For string fields, only use LIKE filter; for numeric fields, either provide a number to achieve == or use <, <=, >, >= filters; for array fields, either provide an array of 1+ values to achieve IN or use NOT to exclude."
)

// JSON schema of the tool arguments
func (r *Retriever) ParametersSchema() map[string]any {
	properties := map[string]any{
		"query": map[string]any{
			"description": r.cfg.QueryParameterPrompt,
			"type":        "string",
		},
	}

	if len(r.cfg.FilterableColumns) > 0 {
		properties["filters"] = filtersSchema(r.cfg.FilterableColumns, r.cfg.FilterParameterPrompt, r.columnDescriptions)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

func filtersSchema(columns []string, prompt, descriptions string) map[string]any {
	stringOrNumber := []any{
		map[string]any{"type": "string"},
		map[string]any{"type": "number"},
	}

	return map[string]any{
		"description": prompt,
		"type":        "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"field": map[string]any{
					"type":        "string",
					"enum":        append([]string(nil), columns...),
					"description": fieldDescriptionPrefix + descriptions + fieldDescriptionSuffix,
				},
				"filter": map[string]any{
					"anyOf": []any{
						map[string]any{"type": "string"},
						map[string]any{"type": "number"},
						map[string]any{
							"type":  "array",
							"items": map[string]any{"anyOf": stringOrNumber},
						},
						map[string]any{
							"type": "object",
							"properties": map[string]any{
								"<":    map[string]any{"type": "number"},
								"<=":   map[string]any{"type": "number"},
								">":    map[string]any{"type": "number"},
								">=":   map[string]any{"type": "number"},
								"LIKE": map[string]any{"type": "string"},
								"NOT":  map[string]any{"anyOf": stringOrNumber},
							},
							"additionalProperties": false,
							"minProperties":        1,
							"maxProperties":        1,
						},
					},
				},
			},
			"required":             []string{"field", "filter"},
			"additionalProperties": false,
		},
	}
}

// filterable columns with type and comment from the source table, e.g.
// "(`year`, int, 'publication year'), (`title`, string"; falls back to the
// bare column names when metadata cannot be read
func (r *Retriever) FilterableColumnsDescriptions(ctx context.Context) string {
	index, err := r.catalog.GetIndex(ctx, r.cfg.Index)
	if err != nil {
		return strings.Join(r.cfg.FilterableColumns, ", ")
	}

	table, _, err := r.sourceTable(ctx, index)
	if err != nil {
		return strings.Join(r.cfg.FilterableColumns, ", ")
	}

	return describeColumns(r.cfg.FilterableColumns, table)
}

func describeColumns(columns []string, table *platform.TableInfo) string {
	info := make(map[string]platform.ColumnInfo, len(table.Columns))
	for _, c := range table.Columns {
		info[c.Name] = c
	}

	descriptions := make([]string, 0, len(columns))
	for _, col := range columns {
		typeText := "unknown"
		comment := ""

		if c, ok := info[col]; ok {
			typeText = c.TypeText
			comment = c.Comment
		}

		desc := fmt.Sprintf("(`%s`, %s", col, typeText)
		if comment != "" {
			desc += fmt.Sprintf(", '%s')", comment)
		}

		descriptions = append(descriptions, desc)
	}

	return strings.Join(descriptions, ", ")
}
