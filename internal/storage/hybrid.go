package storage

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"codeberg.org/ragcookbook/server/internal/platform"
)

// reciprocal rank fusion constant
const rrfK = 60

// fuses an ANN ranking with a full-text ranking of the text column using
// reciprocal rank fusion. $1 is the query vector, $2 the query text; filter
// placeholders follow and the limit comes last. both rankings see the same
// filters and the fused score replaces the cosine similarity
func hybridQuery(layout *indexLayout, textColumn string, req platform.QueryRequest) (string, []any, error) {
	where, args, err := whereClause(req.FiltersJSON, 3)
	if err != nil {
		return "", nil, err
	}

	args = append([]any{req.QueryText}, args...)

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	args = append(args, numResults)
	limit := fmt.Sprintf("$%d", len(args)+1)

	table := layout.table.Sanitize()
	pk := pgx.Identifier{layout.primaryKey}.Sanitize()
	distance := pgx.Identifier{layout.vectorColumn}.Sanitize() + " <=> $1::vector"
	tsv := fmt.Sprintf("to_tsvector('english', %s::text)", pgx.Identifier{textColumn}.Sanitize())
	tsq := "websearch_to_tsquery('english', $2)"

	semanticWhere, keywordWhere := "", ""
	if where != "" {
		semanticWhere = " WHERE " + where
		keywordWhere = " AND " + where
	}

	selected := make([]string, len(req.Columns))
	for i, col := range req.Columns {
		selected[i] = "t." + pgx.Identifier{col}.Sanitize()
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "WITH semantic AS (SELECT %s AS id, ROW_NUMBER() OVER (ORDER BY %s) AS rank FROM %s%s ORDER BY %s LIMIT %s), ",
		pk, distance, table, semanticWhere, distance, limit)
	fmt.Fprintf(&sb, "keyword AS (SELECT %s AS id, ROW_NUMBER() OVER (ORDER BY ts_rank(%s, %s) DESC) AS rank FROM %s WHERE %s @@ %s%s ORDER BY rank LIMIT %s), ",
		pk, tsv, tsq, table, tsv, tsq, keywordWhere, limit)
	fmt.Fprintf(&sb, "fused AS (SELECT COALESCE(s.id, k.id) AS id, COALESCE(1.0 / (%d + s.rank), 0) + COALESCE(1.0 / (%d + k.rank), 0) AS %s FROM semantic s FULL OUTER JOIN keyword k ON s.id = k.id) ",
		rrfK, rrfK, scoreColumn)
	fmt.Fprintf(&sb, "SELECT %s, f.%s AS %s FROM fused f JOIN %s t ON t.%s = f.id ORDER BY f.%s DESC LIMIT %s",
		strings.Join(selected, ", "), scoreColumn, scoreColumn, table, pk, scoreColumn, limit)

	return sb.String(), args, nil
}
