package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUpsert_HeartRate_TwoRows(t *testing.T) {
	q := heartRateSpec.buildUpsert(2, true)
	assert.Contains(t, q, "INSERT INTO heart_rate_samples")
	assert.Contains(t, q, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)")
	assert.Contains(t, q, "($12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)")
	assert.Contains(t, q, "ON CONFLICT (user_id, recorded_at) DO UPDATE SET")
}

func TestBuildUpsert_Activity_UsesGreatestForNumericMerge(t *testing.T) {
	q := activitySpec.buildUpsert(1, true)
	assert.Contains(t, q, "GREATEST(activity_samples.step_count, excluded.step_count)")
	assert.Contains(t, q, "context = excluded.context")
}

func TestBuildUpsert_BloodGlucose_ConflictIncludesSource(t *testing.T) {
	q := bloodGlucoseSpec.buildUpsert(1, true)
	assert.Contains(t, q, "ON CONFLICT (user_id, recorded_at, glucose_source)")
}

func TestBuildUpsert_HeartRate_DedupDisabled_DegradesToDoNothing(t *testing.T) {
	q := heartRateSpec.buildUpsert(2, false)
	assert.Contains(t, q, "ON CONFLICT (user_id, recorded_at) DO NOTHING")
	assert.NotContains(t, q, "DO UPDATE SET")
}

func TestBuildUpsert_Activity_DedupDisabled_StillUsesGreatestMerge(t *testing.T) {
	// activitySpec is a field-wise roll-up, not a last-wins kind, so
	// disabling intra-batch dedup must not change its conflict clause.
	q := activitySpec.buildUpsert(1, false)
	assert.Contains(t, q, "GREATEST(activity_samples.step_count, excluded.step_count)")
}
