package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"codeberg.org/ragcookbook/server/internal/chunker"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/storage"
)

// chunks and embeds markdown files, then upserts them into the index table
func IngestDocs(ctx context.Context, db *storage.Client, embedder llm.Embedder, table storage.TableName, flags config.IngestFlags) error {
	logger.Info("starting docs ingestion", "path", flags.Path, "table", table.String(), "clear", flags.Clear)

	if err := db.EnsureChunkTable(ctx, table, flags.Dimensions); err != nil {
		return err
	}

	if flags.Clear {
		logger.Info("clearing existing chunks")

		if err := db.ClearChunks(ctx, table); err != nil {
			return fmt.Errorf("failed to clear existing chunks: %w", err)
		}
	}

	opts := chunker.DefaultOptions()
	opts.MaxTokens = flags.MaxTokens
	opts.OverlapTokens = flags.OverlapTokens

	chunks, errs := chunker.ChunkDocuments(flags.Path, flags.BaseURI, opts)
	if len(errs) > 0 {
		logger.Warn("encountered errors while chunking", "error_count", len(errs))

		for _, err := range errs {
			logger.Warn("chunking error", "error", err)
		}
	}

	if len(chunks) == 0 {
		return fmt.Errorf("no chunks generated from %s", flags.Path)
	}

	logger.Info("generated chunks", "count", len(chunks))

	for start := 0; start < len(chunks); start += flags.BatchSize {
		end := min(start+flags.BatchSize, len(chunks))

		if err := ingestBatch(ctx, db, embedder, table, chunks[start:end]); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}

		logger.Info("ingested batch", "from", start, "to", end)
	}

	count, err := db.CountChunks(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to verify chunk count: %w", err)
	}

	logger.Info("successfully ingested documentation",
		"chunks_upserted", len(chunks),
		"total_chunks", count,
	)

	if flags.PipelineOut != "" {
		return writePipelineConfig(flags)
	}

	return nil
}

func ingestBatch(ctx context.Context, db *storage.Client, embedder llm.Embedder, table storage.TableName, batch []chunker.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	embeddings, err := embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	rows := make([]storage.Chunk, len(batch))
	for i, chunk := range batch {
		rows[i] = storage.Chunk{
			ID:        chunk.ID,
			Content:   chunk.Content,
			DocURI:    chunk.DocURI,
			Section:   chunk.Section,
			Metadata:  chunk.Metadata,
			Embedding: embeddings[i],
		}
	}

	return db.UpsertChunks(ctx, table, rows)
}

// records how the index was built so the deployer can attach it to the run
func writePipelineConfig(flags config.IngestFlags) error {
	data, err := json.MarshalIndent(map[string]any{
		"source_path":        flags.Path,
		"vector_index":       flags.Table,
		"embedding_endpoint": flags.EmbeddingEndpoint,
		"embedding_dims":     flags.Dimensions,
		"chunker": map[string]any{
			"type":             "markdown_headers",
			"max_tokens":       flags.MaxTokens,
			"overlap_tokens":   flags.OverlapTokens,
			"preserve_headers": true,
		},
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(flags.PipelineOut, data, 0o644); err != nil { //nolint:gosec // shared config file
		return fmt.Errorf("failed to write %s: %w", flags.PipelineOut, err)
	}

	logger.Info("wrote data pipeline config", "path", flags.PipelineOut)

	return nil
}
