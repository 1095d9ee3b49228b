package vectorsearch

import (
	"context"
	"slices"
	"strings"

	"codeberg.org/ragcookbook/server/internal/tracing"
)

// one LLM-written filter: a field plus a scalar, a list of values or a
// single-operator object such as {"<": 3} or {"LIKE": "foo"}
type FilterItem struct {
	Field  string `json:"field"`
	Filter any    `json:"filter"`
}

var comparisonOperators = []string{"<", "<=", ">", ">="}

// translates LLM filters into the index's filter dictionary:
//
//	list         -> {field: {"OR": list}}
//	{op: v}      -> {"field op": v} for <, <=, >, >=
//	{LIKE: v}    -> {"field LIKE": v}
//	{NOT: v}     -> {"field !=": v}
//	scalar       -> {field: v}
//
// unsupported operators are dropped and later entries overwrite earlier
// ones with the same key
func ParseFilters(filters []FilterItem) (map[string]any, error) {
	out := make(map[string]any, len(filters))

	for i, item := range filters {
		if item.Field == "" {
			return nil, invalidf("filters[%d]: field is required", i)
		}

		switch value := item.Filter.(type) {
		case []any:
			out[item.Field] = map[string]any{"OR": value}
		case []string:
			out[item.Field] = map[string]any{"OR": value}
		case map[string]any:
			if len(value) == 0 {
				return nil, invalidf("filters[%d]: filter object for %q has no operator", i, item.Field)
			}

			operator := firstKey(value)
			operand := value[operator]

			switch {
			case slices.Contains(comparisonOperators, operator):
				out[item.Field+" "+operator] = operand
			case strings.EqualFold(operator, "LIKE"):
				out[item.Field+" LIKE"] = operand
			case strings.EqualFold(operator, "NOT"):
				out[item.Field+" !="] = operand
			}
		default:
			out[item.Field] = value
		}
	}

	return out, nil
}

// filter objects carry a single operator; with more than one, the
// smallest key wins so the result is deterministic
func firstKey(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys[0]
}

// ParseFilters wrapped in a PARSER span
func parseFiltersTraced(ctx context.Context, filters []FilterItem) (map[string]any, error) {
	_, span := tracing.Start(ctx, "parse_filters", tracing.SpanTypeParser)
	span.SetInputs(map[string]any{"filters": filters})

	parsed, err := ParseFilters(filters)
	if err == nil {
		span.SetOutputs(parsed)
	}

	span.End(err)

	return parsed, err
}
