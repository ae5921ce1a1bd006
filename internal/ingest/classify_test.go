package ingest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/model"
)

func TestClassify_HeartRateRecordPopulatesBucket(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	hr := 72
	env := envelope{}
	env.Data.Metrics = []metricRecord{
		{Type: "HeartRate", RecordedAt: &now, HeartRate: &hr, SourceDevice: "Watch"},
	}

	payload, errs := classify(userID, env)
	require.Empty(t, errs)
	require.Len(t, payload.HeartRate, 1)
	assert.Equal(t, 72, payload.HeartRate[0].BPM)
	assert.Equal(t, userID, payload.HeartRate[0].UserID)
}

func TestClassify_MissingRequiredFieldProducesError(t *testing.T) {
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Type: "HeartRate"}}

	payload, errs := classify(uuid.New(), env)
	assert.Empty(t, payload.HeartRate)
	require.Len(t, errs, 1)
	assert.Equal(t, model.KindHeartRate, errs[0].Kind)
}

func TestClassify_UnrecognizedTypeProducesError(t *testing.T) {
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Type: "NotARealKind"}}

	_, errs := classify(uuid.New(), env)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "unrecognized metric type")
}

func TestClassify_ActivityParsesRecordedDate(t *testing.T) {
	date := "2024-01-15"
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Type: "Activity", RecordedDate: &date}}

	payload, errs := classify(uuid.New(), env)
	require.Empty(t, errs)
	require.Len(t, payload.Activity, 1)
	assert.Equal(t, 2024, payload.Activity[0].RecordedDate.Year())
}

func TestClassify_ActivityInvalidDateProducesError(t *testing.T) {
	date := "not-a-date"
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Type: "Activity", RecordedDate: &date}}

	payload, errs := classify(uuid.New(), env)
	assert.Empty(t, payload.Activity)
	require.Len(t, errs, 1)
}

func TestClassify_WorkoutRecordsAlwaysIncluded(t *testing.T) {
	env := envelope{}
	env.Data.Workouts = []workoutRecord{
		{WorkoutType: "running", StartedAt: time.Now(), EndedAt: time.Now().Add(time.Hour)},
	}

	payload, errs := classify(uuid.New(), env)
	require.Empty(t, errs)
	require.Len(t, payload.Workout, 1)
	assert.Equal(t, model.WorkoutTypeRunning, payload.Workout[0].WorkoutType)
}

func TestClassify_ReproductiveHealthCarriesPrivacyTier(t *testing.T) {
	now := time.Now()
	env := envelope{}
	env.Data.Metrics = []metricRecord{
		{Type: "ReproductiveHealth", RecordedAt: &now, Kind: "menstrual_flow", Value: "medium", PrivacyTier: "highly_sensitive"},
	}

	payload, errs := classify(uuid.New(), env)
	require.Empty(t, errs)
	require.Len(t, payload.ReproductiveHealth, 1)
	assert.Equal(t, model.PrivacyTierHighlySensitive, payload.ReproductiveHealth[0].PrivacyTier)
}
