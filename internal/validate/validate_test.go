package validate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/model"
)

var cfg = config.DefaultConfig().Validation

func TestHeartRate_BoundaryAccepted(t *testing.T) {
	s := model.HeartRateSample{UserID: uuid.New(), RecordedAt: time.Now(), BPM: 15}
	assert.Nil(t, HeartRate(s, cfg))
}

func TestHeartRate_BelowMinRejected(t *testing.T) {
	s := model.HeartRateSample{UserID: uuid.New(), RecordedAt: time.Now(), BPM: 14}
	result := HeartRate(s, cfg)
	if assert.NotNil(t, result) {
		assert.Contains(t, result.Reason, "[15, 300]")
	}
}

func TestBloodPressure_SystolicMustExceedDiastolic(t *testing.T) {
	s := model.BloodPressureSample{Systolic: 80, Diastolic: 90}
	result := BloodPressure(s, cfg)
	assert.NotNil(t, result)
}

func TestBloodPressure_Valid(t *testing.T) {
	s := model.BloodPressureSample{Systolic: 120, Diastolic: 80}
	assert.Nil(t, BloodPressure(s, cfg))
}

func TestActivity_StepsOverMaxRejected(t *testing.T) {
	s := model.ActivitySample{StepCount: 200001}
	result := Activity(s, cfg)
	assert.NotNil(t, result)
}

func TestSleep_RejectsEndBeforeStart(t *testing.T) {
	now := time.Now()
	s := model.SleepSample{SleepStart: now, SleepEnd: now.Add(-time.Hour)}
	result := Sleep(s, cfg)
	assert.NotNil(t, result)
}

func TestSample_PeerViolationDoesNotAffectOthers(t *testing.T) {
	good := model.HeartRateSample{BPM: 70}
	bad := model.HeartRateSample{BPM: 500}

	assert.Nil(t, Sample(good, cfg))
	assert.NotNil(t, Sample(bad, cfg))
}
