package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/storage"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

func main() {
	// stdout carries the protocol
	logger.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "ragcookbook-mcp"))

	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	configPath := flag.String("config", cfg.AgentConfigPath, "agent YAML config whose tools are exposed")
	flag.Parse()

	ctx := context.Background()

	client, err := platform.New(platform.Config{Host: cfg.Host, Token: cfg.Token, RPS: cfg.PlatformRPS})
	if err != nil {
		logger.Fatal("failed to create platform client", "error", err)
	}

	var catalog vectorsearch.Catalog = client

	if cfg.DatabaseURL != "" {
		db, err := storage.NewClient(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()

		catalog = storage.NewBackend(db, llm.NewEndpointEmbedder(client, cfg.EmbeddingEndpoint), cfg.EmbeddingEndpoint)
	}

	registry := tools.NewRegistry()
	vectorsearch.Register(registry, vectorsearch.NewCachedCatalog(catalog, cache.NewLRU(0, 0), 0))

	agentCfg, err := config.LoadAgentConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load agent config", "error", err)
	}

	predictor, err := agent.Build(ctx, agentCfg, agent.Dependencies{
		Invoker:  client,
		Registry: registry,
		BaseDir:  filepath.Dir(*configPath),
	})
	if err != nil {
		logger.Fatal("failed to build agent", "error", err)
	}

	set := agent.NewHolder(predictor).Tools()
	if set.Len() == 0 {
		logger.Fatal("agent config defines no tools", "path", *configPath)
	}

	s, err := NewMCPServer(set)
	if err != nil {
		logger.Fatal("failed to create MCP server", "error", err)
	}

	logger.Info("serving tools over stdio", "tools", set.Len())

	if err := server.ServeStdio(s, server.WithErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))); err != nil {
		logger.Fatal("MCP server stopped", "error", err)
	}
}
