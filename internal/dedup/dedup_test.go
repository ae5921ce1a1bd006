package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/model"
)

func TestHeartRate_LastWinsOnDuplicateKey(t *testing.T) {
	user := uuid.New()
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	first := model.HeartRateSample{UserID: user, RecordedAt: ts, BPM: 70}
	second := model.HeartRateSample{UserID: user, RecordedAt: ts, BPM: 72}

	out, stats := HeartRate([]model.HeartRateSample{first, second})

	require.Len(t, out, 1)
	assert.Equal(t, 72, out[0].BPM)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
}

func TestHeartRate_Idempotent(t *testing.T) {
	user := uuid.New()
	samples := []model.HeartRateSample{
		{UserID: user, RecordedAt: time.Now(), BPM: 70},
		{UserID: user, RecordedAt: time.Now().Add(time.Minute), BPM: 80},
	}

	once, _ := HeartRate(samples)
	twice, stats := HeartRate(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, stats.DuplicatesRemoved)
}

// Activity roll-ups from two devices for the same (user, date) merge to
// one row with per-field maxima (spec §8.4 scenario 2).
func TestActivity_MergesFieldwiseMax(t *testing.T) {
	user := uuid.New()
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	a := model.ActivitySample{UserID: user, RecordedDate: date, StepCount: 5000, Source: "Watch"}
	b := model.ActivitySample{UserID: user, RecordedDate: date, StepCount: 8000, Source: "Phone"}
	c := model.ActivitySample{UserID: user, RecordedDate: date, StepCount: 3000, Source: "Ring"}

	out, stats := Activity([]model.ActivitySample{a, b, c})

	require.Len(t, out, 1)
	assert.Equal(t, 8000, out[0].StepCount)
	assert.Equal(t, "Ring", out[0].Source) // last non-null observed
	assert.Equal(t, 2, stats.DuplicatesRemoved)
}

// Three CGM readings at an identical timestamp, sources
// {DexcomG6, FreeStyleLibre, DexcomG6}: two rows persisted, one
// duplicate collapsed within DexcomG6 (spec §8.4 scenario 3).
func TestBloodGlucose_DedupsWithinSourceOnly(t *testing.T) {
	user := uuid.New()
	ts := time.Now()

	readings := []model.BloodGlucoseSample{
		{UserID: user, RecordedAt: ts, GlucoseSource: "DexcomG6", MgPerDL: 100},
		{UserID: user, RecordedAt: ts, GlucoseSource: "FreeStyleLibre", MgPerDL: 105},
		{UserID: user, RecordedAt: ts, GlucoseSource: "DexcomG6", MgPerDL: 102},
	}

	out, stats := BloodGlucose(readings)

	require.Len(t, out, 2)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
}

func TestPolicyForKind(t *testing.T) {
	assert.Equal(t, FieldMax, PolicyForKind(model.KindActivity))
	assert.Equal(t, LastWins, PolicyForKind(model.KindHeartRate))
	assert.Equal(t, LastWins, PolicyForKind(model.KindWorkout))
}
