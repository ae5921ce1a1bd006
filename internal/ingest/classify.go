package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/model"
)

// parseDate accepts a plain calendar date (activity records are keyed
// by day, not instant, per spec §3.1).
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid recorded_date %q: %w", s, err)
	}
	return d, nil
}

// classify splits a canonical envelope into the per-kind buckets the
// BatchProcessor consumes (spec §4.6.2 step 1). A record that can't be
// classified (unknown type, missing required timestamp) is dropped
// with a ProcessingError rather than aborting the rest of the batch.
func classify(userID uuid.UUID, env envelope) (batch.Payload, []model.ProcessingError) {
	var payload batch.Payload
	var errs []model.ProcessingError

	for i, m := range env.Data.Metrics {
		idx := i
		switch m.Type {
		case "HeartRate":
			if m.RecordedAt == nil {
				errs = append(errs, missingField(model.KindHeartRate, idx, "recorded_at"))
				continue
			}
			if m.HeartRate == nil {
				errs = append(errs, missingField(model.KindHeartRate, idx, "heart_rate"))
				continue
			}
			ctx, _ := model.ParseActivityContext(m.Context)
			payload.HeartRate = append(payload.HeartRate, model.HeartRateSample{
				UserID: userID, RecordedAt: *m.RecordedAt, BPM: *m.HeartRate,
				RestingBPM: m.RestingHeartRate, Context: ctx, Source: m.SourceDevice,
				Min: m.MinHeartRate, Max: m.MaxHeartRate, Avg: m.AvgHeartRate,
				WalkingAvg: m.WalkingAvgHeartRate, CreatedAt: *m.RecordedAt,
			})

		case "BloodPressure":
			if m.RecordedAt == nil || m.Systolic == nil || m.Diastolic == nil {
				errs = append(errs, missingField(model.KindBloodPressure, idx, "recorded_at/systolic/diastolic"))
				continue
			}
			payload.BloodPressure = append(payload.BloodPressure, model.BloodPressureSample{
				UserID: userID, RecordedAt: *m.RecordedAt, Systolic: *m.Systolic,
				Diastolic: *m.Diastolic, Pulse: m.Pulse, Source: m.SourceDevice,
			})

		case "Sleep":
			if m.SleepStart == nil || m.SleepEnd == nil {
				errs = append(errs, missingField(model.KindSleep, idx, "sleep_start/sleep_end"))
				continue
			}
			payload.Sleep = append(payload.Sleep, model.SleepSample{
				UserID: userID, SleepStart: *m.SleepStart, SleepEnd: *m.SleepEnd,
				DurationMinutes: intOr(m.DurationMinutes), DeepSleepMinutes: intOr(m.DeepSleepMinutes),
				RemSleepMinutes: intOr(m.RemSleepMinutes), LightSleepMinutes: intOr(m.LightSleepMinutes),
				AwakeMinutes: intOr(m.AwakeMinutes), Efficiency: floatOr(m.Efficiency), Source: m.SourceDevice,
			})

		case "Activity":
			if m.RecordedDate == nil {
				errs = append(errs, missingField(model.KindActivity, idx, "recorded_date"))
				continue
			}
			date, err := parseDate(*m.RecordedDate)
			if err != nil {
				errs = append(errs, model.ProcessingError{Kind: model.KindActivity, Index: &idx, Reason: err.Error()})
				continue
			}
			ctx, _ := model.ParseActivityContext(m.Context)
			payload.Activity = append(payload.Activity, model.ActivitySample{
				UserID: userID, RecordedDate: date, StepCount: intOr(m.StepCount),
				DistanceMeters: floatOr(m.DistanceMeters), ActiveEnergyBurnedKcal: floatOr(m.ActiveEnergyBurnedKcal),
				BasalEnergyBurnedKcal: floatOr(m.BasalEnergyBurnedKcal), FlightsClimbed: intOr(m.FlightsClimbed),
				ExerciseMinutes: intOr(m.ExerciseMinutes), StandHours: intOr(m.StandHours), Context: ctx,
				Source: m.SourceDevice, MoveMinutes: intOr(m.MoveMinutes), AvgHeartRate: m.AvgHeartRate,
				MaxHeartRate: m.MaxHeartRate, VO2Max: m.VO2Max, FlightsDescended: intOr(m.FlightsDescended),
				DistanceCyclingMeters: floatOr(m.DistanceCyclingMeters), DistanceSwimmingMeters: floatOr(m.DistanceSwimmingMeters),
				NikeFuelPoints: intOr(m.NikeFuelPoints),
			})

		case "BloodGlucose":
			if m.RecordedAt == nil || m.MgPerDL == nil {
				errs = append(errs, missingField(model.KindBloodGlucose, idx, "recorded_at/mg_per_dl"))
				continue
			}
			ctx, _ := model.ParseActivityContext(m.Context)
			payload.BloodGlucose = append(payload.BloodGlucose, model.BloodGlucoseSample{
				ID: uuid.New(), UserID: userID, RecordedAt: *m.RecordedAt, MgPerDL: *m.MgPerDL,
				GlucoseSource: m.GlucoseSource, InsulinUnits: m.InsulinUnits, Context: ctx, Source: m.SourceDevice,
			})

		case "ReproductiveHealth":
			if m.RecordedAt == nil {
				errs = append(errs, missingField(model.KindReproductiveHealth, idx, "recorded_at"))
				continue
			}
			payload.ReproductiveHealth = append(payload.ReproductiveHealth, model.ReproductiveHealthSample{
				ID: uuid.New(), UserID: userID, RecordedAt: *m.RecordedAt, Kind_: m.Kind,
				Value: m.Value, PrivacyTier: model.PrivacyTier(m.PrivacyTier), Source: m.SourceDevice,
			})

		case "Symptom":
			if m.RecordedAt == nil {
				errs = append(errs, missingField(model.KindSymptom, idx, "recorded_at"))
				continue
			}
			payload.Symptom = append(payload.Symptom, model.SymptomSample{
				UserID: userID, RecordedAt: *m.RecordedAt, Kind_: m.Kind,
				Value: floatOr(m.NumericValue), Unit: m.Unit, Source: m.SourceDevice,
			})

		default:
			errs = append(errs, model.ProcessingError{Index: &idx, Reason: fmt.Sprintf("unrecognized metric type %q", m.Type)})
		}
	}

	for _, w := range env.Data.Workouts {
		payload.Workout = append(payload.Workout, model.WorkoutSample{
			ID: uuid.New(), UserID: userID, WorkoutType: model.ParseWorkoutType(w.WorkoutType),
			StartedAt: w.StartedAt, EndedAt: w.EndedAt, TotalEnergyKcal: w.TotalEnergyKcal,
			DistanceMeters: w.DistanceMeters, AvgHeartRate: w.AvgHeartRate, MaxHeartRate: w.MaxHeartRate,
			Source: w.SourceDevice,
		})
	}

	return payload, errs
}

func missingField(kind model.MetricKind, idx int, field string) model.ProcessingError {
	return model.ProcessingError{Kind: kind, Index: &idx, Reason: fmt.Sprintf("missing required field %q", field)}
}

func intOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
