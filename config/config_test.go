package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestBatchConfigValidate_RejectsOverBudgetChunk(t *testing.T) {
	b := DefaultConfig().Batch
	b.ActivityChunkSize = 7000 // 7000 * 19 = 133000 > SAFE (scenario from spec §8.4.1)

	err := b.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity chunk size 7000 would result in 133000 parameters")
	assert.Contains(t, err.Error(), "exceeding safe limit of 52428")
}

func TestValidationConfigValidate_RejectsInvertedRange(t *testing.T) {
	v := DefaultConfig().Validation
	v.HeartRateMin = 300
	v.HeartRateMax = 15

	err := v.Validate()
	require.Error(t, err)
	assert.Equal(t, "heart_rate_min must be less than heart_rate_max", err.Error())
}

func TestChunkSizeForKind_FallsBackToFloorDivision(t *testing.T) {
	b := DefaultConfig().Batch
	got := b.ChunkSizeForKind("symptom", 6)
	assert.Equal(t, SafeParamLimit/6, got)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("BATCH_ACTIVITY_CHUNK_SIZE", "2000")
	t.Setenv("VALIDATION_HEART_RATE_MAX", "250")

	cfg := LoadFromEnv()
	assert.Equal(t, 2000, cfg.Batch.ActivityChunkSize)
	assert.Equal(t, 250, cfg.Validation.HeartRateMax)
}

func TestConfigManager_RequiresRedisAddrForRedisBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.RateLimitBackend = "redis"
	cfg.Auth.RedisAddr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}
