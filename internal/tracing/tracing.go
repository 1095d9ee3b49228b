package tracing

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationName = "codeberg.org/ragcookbook/server"

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLP collector, e.g. "localhost:4318"; empty disables it
	OTLPEndpoint string
	OTLPInsecure bool

	SamplingRate float64 // 0.0 - 1.0, default 1.0

	// extra exporters (log, tracking API)
	Exporters []sdktrace.SpanExporter

	// exporters run synchronously on span end (tests, short-lived CLIs)
	Sync bool
}

// owns the global tracer provider
type Provider struct {
	serviceName string
	provider    *sdktrace.TracerProvider
}

// builds the tracer provider and installs it globally
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ragcookbook"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.SamplingRate <= 0 || cfg.SamplingRate > 1 {
		cfg.SamplingRate = 1.0
	}

	exporters := append([]sdktrace.SpanExporter{}, cfg.Exporters...)

	if cfg.OTLPEndpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}

		exporters = append(exporters, exporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	}

	for _, exporter := range exporters {
		if cfg.Sync {
			opts = append(opts, sdktrace.WithSyncer(exporter))
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}

	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{serviceName: cfg.ServiceName, provider: provider}, nil
}

// returns the gin tracing middleware
func (p *Provider) Middleware() gin.HandlerFunc {
	if p == nil || p.provider == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(p.serviceName, otelgin.WithTracerProvider(p.provider))
}

// flushes pending spans
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}

	return p.provider.ForceFlush(ctx)
}

// flushes and stops every exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}

	return p.provider.Shutdown(ctx)
}
