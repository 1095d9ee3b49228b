package main

import (
	"codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/auth"
	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/storage"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/gin-gonic/gin"
)

// holds all dependencies and state for the API server
type Server struct {
	config   *config.Config
	platform *platform.Client
	db       *storage.Client // nil unless DATABASE_URL is set
	redis    *cache.Redis    // nil unless REDIS_URL is set
	services *Services
	authn    *auth.Authenticator // nil disables auth
	tracer   *tracing.Provider
	router   *gin.Engine
}

// holds the agent and everything it was built from
type Services struct {
	Agent        *agent.Holder
	Dependencies agent.Dependencies
	Deployer     *deploy.Deployer
}
