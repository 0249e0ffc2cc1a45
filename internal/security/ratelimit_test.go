package security

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int64, fallback AttemptCounter) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, fallback, limit, time.Minute, slog.Default()), mr
}

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "login", "user@example.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, nil)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "login", "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = limiter.Allow(ctx, "login", "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "login", "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, nil)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	ok, err := limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, limiter.Reset(ctx, "login", "user@example.com"))

	ok, err = limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, nil)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	ok, err := limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = limiter.Allow(ctx, "login", "user@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeAttemptCounter struct {
	count int64
	err   error
}

func (f fakeAttemptCounter) CountRecentActions(_ context.Context, _, _ string, _ time.Duration) (int64, error) {
	return f.count, f.err
}

func TestRateLimiterFallbackWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, fakeAttemptCounter{count: 2})
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "login", "user@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterFallbackDenies(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, fakeAttemptCounter{count: 5})
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "login", "user@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiterNoFallbackSurfacesError(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5, nil)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "login", "user@example.com")
	assert.Error(t, err)
}
