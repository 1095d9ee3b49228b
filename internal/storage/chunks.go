package storage

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// one row of a chunk table created by EnsureChunkTable
type Chunk struct {
	ID        string
	Content   string
	DocURI    string
	Section   string
	Metadata  map[string]any
	Embedding []float32
}

// creates the vector extension and a chunk table with the given embedding size
func (c *Client) EnsureChunkTable(ctx context.Context, table TableName, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	if _, err := c.pool.Exec(ctx, createExtensionQuery); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}

	if _, err := c.pool.Exec(ctx, fmt.Sprintf(createChunkTableQuery, table.Sanitize(), dimensions)); err != nil {
		return fmt.Errorf("failed to create %s: %w", table, err)
	}

	return nil
}

// deletes all chunks from the table
func (c *Client) ClearChunks(ctx context.Context, table TableName) error {
	if _, err := c.pool.Exec(ctx, fmt.Sprintf(deleteChunksQuery, table.Sanitize())); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	return nil
}

// inserts or replaces chunks in a single transaction
func (c *Client) UpsertChunks(ctx context.Context, table TableName, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if chunk.ID == "" || len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %d: id and embedding are required", i)
		}
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// no-op once committed
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	query := fmt.Sprintf(upsertChunkQuery, table.Sanitize())
	batch := &pgx.Batch{}

	for _, chunk := range chunks {
		metadata := chunk.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		batch.Queue(query,
			chunk.ID,
			chunk.Content,
			chunk.DocURI,
			chunk.Section,
			metadata,
			pgvector.NewVector(chunk.Embedding),
		)
	}

	br := tx.SendBatch(ctx, batch)

	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck,gosec // error path cleanup
			return fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}

	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// returns the number of chunks in the table
func (c *Client) CountChunks(ctx context.Context, table TableName) (int, error) {
	var count int

	if err := c.pool.QueryRow(ctx, fmt.Sprintf(countChunksQuery, table.Sanitize())).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	return count, nil
}
