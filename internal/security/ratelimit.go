package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter is the fallback source when redis is unavailable. It counts
// recent matching actions in audit_logs.
type AttemptCounter interface {
	CountRecentActions(ctx context.Context, action, key string, window time.Duration) (int64, error)
}

// RateLimiter throttles sensitive actions with an atomic redis counter. The
// first INCR in a window creates the key and sets its expiry; the count and
// the limit check happen server side, so concurrent attempts cannot slip
// past the limit between a read and a write.
type RateLimiter struct {
	client   *redis.Client
	fallback AttemptCounter
	limit    int64
	window   time.Duration
	logger   *slog.Logger
}

// NewRateLimiter builds a RateLimiter allowing limit attempts per window.
func NewRateLimiter(client *redis.Client, fallback AttemptCounter, limit int64, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client:   client,
		fallback: fallback,
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

// Allow reports whether another attempt at action for key is permitted.
func (l *RateLimiter) Allow(ctx context.Context, action, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", action, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return l.allowViaFallback(ctx, action, key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("set rate limit expiry", slog.Any("error", err))
		}
	}
	return count <= l.limit, nil
}

// Reset clears the counter, e.g. after a successful login.
func (l *RateLimiter) Reset(ctx context.Context, action, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", action, key)).Err()
}

func (l *RateLimiter) allowViaFallback(ctx context.Context, action, key string, cause error) (bool, error) {
	if l.fallback == nil {
		return false, cause
	}
	l.logger.Warn("rate limiter falling back to audit counts", slog.Any("error", cause))
	count, err := l.fallback.CountRecentActions(ctx, action, key, l.window)
	if err != nil {
		return false, err
	}
	return count < l.limit, nil
}
