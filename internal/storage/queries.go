package storage

const (
	// $1 schema, $2 table
	tableColumnsQuery = `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.udt_name::text,
			c.is_nullable = 'YES',
			c.ordinal_position::int,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	tableCommentQuery = `
		SELECT COALESCE(obj_description(format('%I.%I', $1::text, $2::text)::regclass, 'pg_class'), '')
	`

	primaryKeyQuery = `
		SELECT k.column_name::text
		FROM information_schema.table_constraints t
		JOIN information_schema.key_column_usage k
			ON k.constraint_name = t.constraint_name AND k.table_schema = t.table_schema
		WHERE t.constraint_type = 'PRIMARY KEY' AND t.table_schema = $1 AND t.table_name = $2
		ORDER BY k.ordinal_position
		LIMIT 1
	`

	createExtensionQuery = `CREATE EXTENSION IF NOT EXISTS vector`

	// %s table, %d dimensions
	createChunkTableQuery = `
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			doc_uri TEXT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)
	`

	upsertChunkQuery = `
		INSERT INTO %s (chunk_id, content, doc_uri, section, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6::vector)
		ON CONFLICT (chunk_id) DO UPDATE SET
			content = EXCLUDED.content,
			doc_uri = EXCLUDED.doc_uri,
			section = EXCLUDED.section,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`

	deleteChunksQuery = `DELETE FROM %s`
	countChunksQuery  = `SELECT COUNT(*) FROM %s`
)
