package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/logger"
)

// @title RAG Cookbook Agent API
// @version 1.0
// @description Serves a retrieval-augmented agent built from a YAML config
// @description
// @description Features:
// @description - Function-calling agent with vector search retriever tools
// @description - Multi-agent supervisor routing
// @description - Direct retrieval and tool execution
// @description - Serving endpoint status for deployed agents

// @contact.name API Support
// @contact.url https://codeberg.org/ragcookbook/server

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token issued by `deployer token`. Format: Bearer {token}

func main() {
	logger.Info("starting ragcookbook server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// create server with all dependencies
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // agent invocations can run for minutes
		IdleTimeout:  60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port, "agent", srv.services.Agent.Kind())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// hot-reload the agent until shutdown
	go srv.services.watchAgentConfig(ctx, cfg.AgentConfigPath)

	// wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	logger.Info("shutting down server")

	// graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// flush pending traces, close Redis and Postgres
	if err := srv.Close(shutdownCtx); err != nil {
		logger.ErrorErr(err, "failed to release server resources")
	}

	logger.Info("server stopped")
}
