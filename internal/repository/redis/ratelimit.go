package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/hyunwoo-kim/docchat/internal/config"
)

const (
	rateLimitKeyPrefix = "chat:ratelimit:"
	rateLimitWindow    = time.Minute
)

// RateLimiter enforces a fixed per-minute request budget per caller.
type RateLimiter struct {
	client *Client
	limit  int64
}

// NewRateLimiter creates a rate limiter with an effective budget of
// requests_per_minute plus burst.
func NewRateLimiter(client *Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  int64(cfg.RequestsPerMinute + cfg.Burst),
	}
}

// Allow counts one request against the caller's current window.
// Returns whether the request fits the budget, how many requests
// remain and when the window resets.
func (r *RateLimiter) Allow(ctx context.Context, callerID string) (bool, int, time.Time, error) {
	key := rateLimitKeyPrefix + callerID

	pipe := r.client.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rateLimitWindow)
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := incr.Val()
	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= r.limit, int(remaining), time.Now().Add(ttl.Val()), nil
}
