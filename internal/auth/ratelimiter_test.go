package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_AllowsUpToQuota(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "key-a", 3)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed within burst", i)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "key-a", 3)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Positive(t, retryAfter)
}

func TestMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "key-a", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "key-b", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "a fresh key must not inherit another key's exhausted bucket")
}

func TestMemoryRateLimiter_EvictStaleRemovesOldBuckets(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	defer limiter.Stop()
	ctx := context.Background()

	_, _, err := limiter.Allow(ctx, "key-a", 5)
	require.NoError(t, err)

	limiter.mu.Lock()
	limiter.limiters["key-a"].lastUsed = time.Now().Add(-2 * rateLimiterEvictAfter)
	limiter.mu.Unlock()

	limiter.evictStale()

	limiter.mu.Lock()
	_, stillPresent := limiter.limiters["key-a"]
	limiter.mu.Unlock()
	assert.False(t, stillPresent)
}
