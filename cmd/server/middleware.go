package main

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/ragcookbook/server/internal/auth"
	"codeberg.org/ragcookbook/server/internal/cache"
	"codeberg.org/ragcookbook/server/internal/errors"
	"codeberg.org/ragcookbook/server/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	rateLimitPrefix = "ragcookbook:ratelimit"
)

// allows the configured origins; "*" allows any
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}

// tags each request with an id, reusing the caller's X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.With(requestIDKey, requestID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// logs one line per request
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}

		if subject, ok := auth.GetSubject(c); ok {
			args = append(args, "subject", subject)
		}

		log := logger.FromContext(c.Request.Context())

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", args...)
		case path == "/health":
			log.Debug("request", args...)
		default:
			log.Info("request", args...)
		}
	}
}

// per-client-IP limit in ulule format ("120-M"); counters live in redis
// when shared is set
func RateLimitMiddleware(formatted string, shared *cache.Redis) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	var store limiter.Store
	if shared != nil {
		store, err = sredis.NewStoreWithOptions(shared.Client(), limiter.StoreOptions{
			Prefix:   rateLimitPrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			errors.TooManyRequests(c, fmt.Sprintf("rate limit of %s exceeded", formatted))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open
			logger.ErrorErr(err, "rate limiter unavailable")
			c.Next()
		}),
	), nil
}
