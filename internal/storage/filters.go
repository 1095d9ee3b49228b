package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

// builds a WHERE condition from a filters_json document. keys are a column
// optionally followed by an operator ("year <", "title LIKE"); values are
// scalars or {"OR": [...]} lists. placeholders are numbered from next
func whereClause(filtersJSON string, next int) (string, []any, error) {
	if strings.TrimSpace(filtersJSON) == "" {
		return "", nil, nil
	}

	var filters map[string]any

	dec := json.NewDecoder(strings.NewReader(filtersJSON))
	dec.UseNumber()

	if err := dec.Decode(&filters); err != nil {
		return "", nil, fmt.Errorf("invalid filters_json: %w", err)
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	var (
		conds []string
		args  []any
	)

	for _, key := range keys {
		column, op, err := splitFilterKey(key)
		if err != nil {
			return "", nil, err
		}

		ident := pgx.Identifier{column}.Sanitize()
		placeholder := fmt.Sprintf("$%d", next+len(args))

		list, isList, err := listValue(filters[key])
		if err != nil {
			return "", nil, fmt.Errorf("filter %q: %w", key, err)
		}

		if isList {
			switch op {
			case "=":
				conds = append(conds, ident+" = ANY("+placeholder+")")
			case "!=":
				conds = append(conds, "NOT ("+ident+" = ANY("+placeholder+"))")
			default:
				return "", nil, fmt.Errorf("filter %q: operator %s does not accept a list", key, op)
			}

			args = append(args, list)

			continue
		}

		value, err := scalarValue(filters[key])
		if err != nil {
			return "", nil, fmt.Errorf("filter %q: %w", key, err)
		}

		switch op {
		case "=", "<", "<=", ">", ">=":
			conds = append(conds, ident+" "+op+" "+placeholder)
		case "!=":
			conds = append(conds, ident+" <> "+placeholder)
		case "LIKE":
			conds = append(conds, ident+"::text LIKE '%' || "+placeholder+" || '%'")
			value = fmt.Sprint(value)
		}

		args = append(args, value)
	}

	return strings.Join(conds, " AND "), args, nil
}

var filterOperators = []string{"<", "<=", ">", ">=", "!=", "LIKE"}

func splitFilterKey(key string) (column, op string, err error) {
	key = strings.TrimSpace(key)

	i := strings.LastIndex(key, " ")
	if i < 0 {
		if key == "" {
			return "", "", fmt.Errorf("filter with empty column name")
		}

		return key, "=", nil
	}

	op = strings.ToUpper(key[i+1:])
	if !slices.Contains(filterOperators, op) {
		return "", "", fmt.Errorf("unsupported filter operator %q in %q", key[i+1:], key)
	}

	return strings.TrimSpace(key[:i]), op, nil
}

// unwraps {"OR": [...]} and bare arrays into a typed slice pgx can
// encode as a postgres array
func listValue(v any) (any, bool, error) {
	if m, ok := v.(map[string]any); ok {
		or, found := m["OR"]
		if !found || len(m) != 1 {
			return nil, false, fmt.Errorf("only {\"OR\": [...]} objects are supported")
		}
		v = or
	}

	items, ok := v.([]any)
	if !ok {
		return nil, false, nil
	}

	if len(items) == 0 {
		return nil, false, fmt.Errorf("empty value list")
	}

	var (
		strs   []string
		ints   []int64
		floats []float64
	)

	for _, item := range items {
		scalar, err := scalarValue(item)
		if err != nil {
			return nil, false, err
		}

		switch s := scalar.(type) {
		case string:
			strs = append(strs, s)
		case int64:
			ints = append(ints, s)
			floats = append(floats, float64(s))
		case float64:
			floats = append(floats, s)
		default:
			return nil, false, fmt.Errorf("unsupported list element %v", item)
		}
	}

	switch {
	case len(strs) == len(items):
		return strs, true, nil
	case len(ints) == len(items):
		return ints, true, nil
	case len(floats) == len(items):
		return floats, true, nil
	}

	return nil, false, fmt.Errorf("list mixes strings and numbers")
}

func scalarValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}

		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", val)
		}

		return f, nil
	case string, bool:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null filter value")
	}

	return nil, fmt.Errorf("unsupported filter value %v", v)
}
