package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// RateLimiter gates requests per ApiKey identifier against its
// configured hourly quota (spec §4.8: "token-bucket keyed by ApiKey
// identifier"). Allow returns the wait duration to suggest as a
// Retry-After hint when the bucket is exhausted.
type RateLimiter interface {
	Allow(ctx context.Context, apiKeyID string, perHour int) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryRateLimiter is the default, per-instance backend: one
// token-bucket per ApiKey identifier, refilled continuously at
// perHour/3600 tokens per second (spec §4.6 flags: memory is the
// default, Redis is opt-in). A background goroutine evicts buckets
// that have gone quiet, the same ticker+stopChan+WaitGroup shape
// storage.TieringWorker uses for its periodic sweep, so a long-lived
// server doesn't accumulate one *rate.Limiter per ApiKey forever.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	stopChan chan struct{}
	wg       sync.WaitGroup
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

const rateLimiterEvictAfter = time.Hour

func NewMemoryRateLimiter() *MemoryRateLimiter {
	m := &MemoryRateLimiter{
		limiters: make(map[string]*limiterEntry),
		stopChan: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Stop terminates the eviction goroutine. Safe to call once at
// process shutdown; not required for correctness, only for a clean
// goroutine exit.
func (m *MemoryRateLimiter) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

func (m *MemoryRateLimiter) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryRateLimiter) evictStale() {
	cutoff := time.Now().Add(-rateLimiterEvictAfter)
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(m.limiters, key)
		}
	}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, apiKeyID string, perHour int) (bool, time.Duration, error) {
	m.mu.Lock()
	entry, ok := m.limiters[apiKeyID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), perHour)}
		m.limiters[apiKeyID] = entry
	}
	entry.lastUsed = time.Now()
	limiter := entry.limiter
	m.mu.Unlock()

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, 0, fmt.Errorf("rate limiter misconfigured for burst %d", perHour)
	}
	delay := reservation.Delay()
	if delay > 0 {
		reservation.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// RedisRateLimiter enforces the same per-key hourly quota with a
// shared Redis counter so quota is enforced across instances (spec
// §4.6 flags). It is a fixed window, not a token bucket: INCR + EXPIRE
// on the key's current hour bucket.
type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, apiKeyID string, perHour int) (bool, time.Duration, error) {
	window := time.Now().UTC().Truncate(time.Hour)
	key := fmt.Sprintf("ratelimit:%s:%d", apiKeyID, window.Unix())

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis rate limiter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, time.Hour).Err(); err != nil {
			return false, 0, fmt.Errorf("redis rate limiter expire: %w", err)
		}
	}

	if int(count) > perHour {
		retryAfter := window.Add(time.Hour).Sub(time.Now().UTC())
		return false, retryAfter, nil
	}
	return true, 0, nil
}
