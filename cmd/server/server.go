package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"codeberg.org/ragcookbook/server/internal/auth"
	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/config"
	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"codeberg.org/ragcookbook/server/internal/storage"
	"codeberg.org/ragcookbook/server/internal/tracing"
	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const metadataCachePrefix = "ragcookbook:catalog"

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (_ *Server, err error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := platform.New(platform.Config{
		Host:  cfg.Host,
		Token: cfg.Token,
		RPS:   cfg.PlatformRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}

	server := &Server{config: cfg, platform: client}

	// release whatever was opened if a later step fails
	defer func() {
		if err != nil {
			server.Close(context.Background()) //nolint:errcheck,gosec // best-effort cleanup on init failure
		}
	}()

	server.tracer, err = initTracing(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		server.redis, err = cache.NewRedis(ctx, cfg.RedisURL, metadataCachePrefix, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
	}

	if cfg.DatabaseURL != "" {
		server.db, err = storage.NewClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	if cfg.JWTSecret != "" {
		server.authn, err = auth.New(cfg.JWTSecret, auth.DefaultTokenTTL)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
	}

	server.services, err = InitializeServices(ctx, cfg, client, server.db, server.redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	rateLimit, err := RateLimitMiddleware(cfg.RateLimit, server.redis)
	if err != nil {
		return nil, err
	}

	server.router = gin.New()
	RegisterRoutes(server.router, server, rateLimit)

	return server, nil
}

// spans go to the log in development, to the tracking API when
// TRACE_EXPERIMENT is set and to an OTLP collector when configured
func initTracing(ctx context.Context, cfg *config.Config, client *platform.Client) (*tracing.Provider, error) {
	var exporters []sdktrace.SpanExporter

	if cfg.Environment != "production" {
		exporters = append(exporters, tracing.NewLogExporter())
	}

	if cfg.TraceExperiment != "" {
		experimentID, err := client.GetOrCreateExperiment(ctx, cfg.TraceExperiment)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve trace experiment: %w", err)
		}

		exporters = append(exporters, tracing.NewPlatformExporter(client, experimentID))
	}

	provider, err := tracing.Init(ctx, tracing.Config{
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Exporters:    exporters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return provider, nil
}

// flushes spans and closes connections
func (s *Server) Close(ctx context.Context) error {
	var errs []error

	if err := s.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if s.db != nil {
		s.db.Close()
	}

	return stderrors.Join(errs...)
}
