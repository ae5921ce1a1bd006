package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
)

func TestTranslateNative_ExplodesDataPointsIntoCanonicalRecords(t *testing.T) {
	table := mapping.NewTable()
	env := envelope{}
	env.Data.Metrics = []metricRecord{
		{
			Identifier: "HKQuantityTypeIdentifierHeartRate",
			Units:      "count/min",
			NativeData: []nativeDataPoint{
				{Qty: 65, Date: time.Now(), Source: "Watch"},
				{Qty: 70, Date: time.Now(), Source: "Watch"},
			},
		},
	}

	errs := translateNative(&env, table)
	require.Empty(t, errs)
	require.Len(t, env.Data.Metrics, 2)
	assert.Equal(t, "HeartRate", env.Data.Metrics[0].Type)
	require.NotNil(t, env.Data.Metrics[0].HeartRate)
	assert.Equal(t, 65, *env.Data.Metrics[0].HeartRate)
}

func TestTranslateNative_UnknownIdentifierProducesError(t *testing.T) {
	table := mapping.NewTable()
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Identifier: "HKSomethingMade Up"}}

	errs := translateNative(&env, table)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "unknown device-native identifier")
	assert.Empty(t, env.Data.Metrics)
}

func TestTranslateNative_CanonicalRecordsPassThroughUnchanged(t *testing.T) {
	table := mapping.NewTable()
	now := time.Now()
	hr := 80
	env := envelope{}
	env.Data.Metrics = []metricRecord{{Type: "HeartRate", RecordedAt: &now, HeartRate: &hr}}

	errs := translateNative(&env, table)
	require.Empty(t, errs)
	require.Len(t, env.Data.Metrics, 1)
	assert.Equal(t, "HeartRate", env.Data.Metrics[0].Type)
}

func TestApplyNativeQuantity_ActivityDistinguishesUnits(t *testing.T) {
	var canonSteps, canonKcal metricRecord
	applyNativeQuantity(&canonSteps, model.KindActivity, 1000, "steps")
	require.NotNil(t, canonSteps.StepCount)
	assert.Equal(t, 1000, *canonSteps.StepCount)

	applyNativeQuantity(&canonKcal, model.KindActivity, 250.5, "kcal")
	require.NotNil(t, canonKcal.ActiveEnergyBurnedKcal)
	assert.Equal(t, 250.5, *canonKcal.ActiveEnergyBurnedKcal)
}
