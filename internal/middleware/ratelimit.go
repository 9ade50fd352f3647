package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/metrics"
)

// verdict is the outcome of taking one token from a bucket.
type verdict struct {
	allowed   bool
	remaining int
	retry     time.Duration
}

// bucketStore takes tokens from the bucket named by key.
type bucketStore interface {
	take(ctx context.Context, key string) (verdict, error)
}

// NewTokenBucket limits requests per key (see rateKey).  Buckets live in
// Redis so every replica shares them; without a client each process keeps
// its own buckets in memory.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if rdb == nil {
		return limit(cfg, newLocalBuckets(cfg))
	}
	return limit(cfg, newRedisBuckets(cfg, rdb))
}

// limit is the middleware body shared by both stores.  A store error lets the
// request through.
func limit(cfg config.RateLimitConfig, store bucketStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			v, err := store.take(ctx, key)
			if err != nil {
				metrics.RateLimitDecisions.WithLabelValues("error").Inc()
				zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("ratelimit: store error")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !v.allowed {
				metrics.RateLimitDecisions.WithLabelValues("blocked").Inc()
				return tooManyRequests(c, v.retry)
			}
			metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()
			return next(c)
		}
	}
}

// rateKey names the bucket for a request.  "ip" (the default) keys on the
// client address, "user" on the session email with the address as fallback
// for anonymous callers, and "ip_route" on the address plus the matched
// route so every endpoint gets its own budget.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "user":
		if u, ok := CurrentUser(c); ok {
			parts = append(parts, "user", u.Email)
		} else {
			parts = append(parts, "ip", ip)
		}
	case "ip_route":
		parts = append(parts, "ip", ip, "route", c.Request().Method+" "+c.Path())
	default:
		parts = append(parts, "ip", ip)
	}
	return strings.Join(parts, ":")
}

func tooManyRequests(c echo.Context, retry time.Duration) error {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":       "too_many_requests",
		"message":     "rate limit exceeded",
		"retry_after": secs,
	})
}
