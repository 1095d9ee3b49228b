package main

import (
	"context"
	"fmt"
	"path/filepath"

	"codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/llm"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/storage"
	"codeberg.org/ragcookbook/server/internal/tools"
	"codeberg.org/ragcookbook/server/internal/vectorsearch"
)

const metadataCacheSize = 256

// builds the agent from the config file and the catalog it searches
func InitializeServices(ctx context.Context, cfg *config.Config, client *platform.Client, db *storage.Client, shared *cache.Redis) (*Services, error) {
	catalog := newCatalog(cfg, client, db, shared)

	registry := tools.NewRegistry()
	vectorsearch.Register(registry, catalog)

	deps := agent.Dependencies{
		Invoker:  client,
		Registry: registry,
		BaseDir:  filepath.Dir(cfg.AgentConfigPath),
	}

	agentCfg, err := config.LoadAgentConfig(cfg.AgentConfigPath)
	if err != nil {
		return nil, err
	}

	predictor, err := agent.Build(ctx, agentCfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}

	return &Services{
		Agent:        agent.NewHolder(predictor),
		Dependencies: deps,
		Deployer:     deploy.New(client),
	}, nil
}

// pgvector when DATABASE_URL is set, the workspace otherwise; metadata
// lookups are cached in-process and, with REDIS_URL, across replicas
func newCatalog(cfg *config.Config, client *platform.Client, db *storage.Client, shared *cache.Redis) vectorsearch.Catalog {
	var backend vectorsearch.Catalog = client

	if db != nil {
		embedder := llm.NewEndpointEmbedder(client, cfg.EmbeddingEndpoint)
		backend = storage.NewBackend(db, embedder, cfg.EmbeddingEndpoint)
		logger.Info("vector search backed by postgres", "embedding_endpoint", cfg.EmbeddingEndpoint)
	}

	local := cache.NewLRU(metadataCacheSize, vectorsearch.DefaultMetadataTTL)

	var metadata cache.Cache = local
	if shared != nil {
		metadata = cache.NewTiered(local, shared)
	}

	return vectorsearch.NewCachedCatalog(backend, metadata, vectorsearch.DefaultMetadataTTL)
}

// rebuilds the agent on every valid config change; a failed build keeps
// the previous agent serving
func (s *Services) watchAgentConfig(ctx context.Context, path string) {
	err := config.Watch(ctx, path, func(agentCfg *config.AgentConfig) {
		predictor, err := agent.Build(ctx, agentCfg, s.Dependencies)
		if err != nil {
			logger.ErrorErr(err, "failed to rebuild agent, keeping previous one", "path", path)
			return
		}

		s.Agent.Swap(predictor)
		logger.Info("agent swapped", "kind", s.Agent.Kind())
	})
	if err != nil {
		logger.ErrorErr(err, "agent config watcher stopped", "path", path)
	}
}
