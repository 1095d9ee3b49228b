package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = "8080"
	defaultAgentConfigPath = "./configs/agent_config.yaml"
	defaultRateLimit       = "120-M"
	defaultPlatformRPS     = 20
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	host := strings.TrimRight(os.Getenv("DATABRICKS_HOST"), "/")
	token := os.Getenv("DATABRICKS_TOKEN")

	if host == "" {
		return nil, fmt.Errorf("DATABRICKS_HOST environment variable is required")
	}

	if token == "" {
		return nil, fmt.Errorf("DATABRICKS_TOKEN environment variable is required")
	}

	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	cfg := &Config{
		Host:              host,
		Token:             token,
		Environment:       getenvDefault("ENVIRONMENT", "development"),
		Port:              getenvDefault("PORT", defaultPort),
		AgentConfigPath:   getenvDefault("AGENT_CONFIG", defaultAgentConfigPath),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RateLimit:         getenvDefault("RATE_LIMIT", defaultRateLimit),
		PlatformRPS:       defaultPlatformRPS,
		CORSOrigins:       splitList(getenvDefault("CORS_ORIGINS", "*")),
		EmbeddingEndpoint: getenvDefault("EMBEDDING_ENDPOINT", defaultEmbeddingEndpoint),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TraceExperiment:   os.Getenv("TRACE_EXPERIMENT"),
	}

	if rpsStr := os.Getenv("PLATFORM_RPS"); rpsStr != "" {
		rps, err := strconv.ParseFloat(rpsStr, 64)
		if err != nil || rps <= 0 {
			return nil, fmt.Errorf("PLATFORM_RPS must be a positive number, got %q", rpsStr)
		}
		cfg.PlatformRPS = rps
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
