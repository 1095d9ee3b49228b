package main

import (
	"codeberg.org/ragcookbook/server/api/rest/agent"
	"codeberg.org/ragcookbook/server/api/rest/deployments"
	"codeberg.org/ragcookbook/server/api/rest/health"
	"codeberg.org/ragcookbook/server/api/rest/tools"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server, rateLimit gin.HandlerFunc) {
	router.Use(
		gin.Recovery(),
		server.tracer.Middleware(),
		RequestIDMiddleware(),
		RequestLoggerMiddleware(),
		CORSMiddleware(server.config.CORSOrigins),
	)
	router.GET("/health", health.Handler(server.services.Agent))

	v1 := router.Group("/api/v1")
	v1.Use(rateLimit)

	{
		v1.GET("/ping", health.PingHandler)

		agent.RegisterRoutes(v1, server.services.Agent, server.authn)
		tools.RegisterRoutes(v1, server.services.Agent, server.authn)
		deployments.RegisterRoutes(v1, server.platform, server.services.Deployer, server.authn)
	}
}
