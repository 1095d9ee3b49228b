package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ingester <command> [options]")
		fmt.Println("Commands:")
		fmt.Println("  docs   - chunk, embed and load markdown files into a local pgvector index")
		fmt.Println("  count  - print the number of chunks in a local index")
		fmt.Println("\nOptions:")
		fmt.Println("  -table <catalog.schema.table>  - index table (required)")
		fmt.Println("  -path <dir>                    - directory to ingest from")
		fmt.Println("  -clear                         - clear existing chunks before ingesting")
		os.Exit(1)
	}

	command := os.Args[1]

	flags, err := config.ParseIngestFlags(command, os.Args[2:])
	if err != nil {
		logger.Fatal("invalid flags", "command", command, "error", err)
	}

	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required for ingestion")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}

	defer db.Close()

	logger.Info("connected to database")

	table, err := storage.ParseTableName(flags.Table)
	if err != nil {
		logger.Fatal("invalid table", "error", err)
	}

	switch command {
	case "docs":
		client, err := platform.New(platform.Config{Host: cfg.Host, Token: cfg.Token, RPS: cfg.PlatformRPS})
		if err != nil {
			logger.Fatal("failed to create platform client", "error", err)
		}

		embedder := llm.NewEndpointEmbedder(client, flags.EmbeddingEndpoint)

		if err := IngestDocs(ctx, db, embedder, table, flags); err != nil {
			logger.Fatal("failed to ingest docs", "error", err)
		}

	case "count":
		count, err := db.CountChunks(ctx, table)
		if err != nil {
			logger.Fatal("failed to count chunks", "error", err)
		}

		fmt.Println(count)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
