// Package validate implements pure, stateless per-sample and
// per-payload invariant checks (C2). No function here has a side
// effect; every check is a read of the sample plus the configured
// validity window.
package validate

import (
	"fmt"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/model"
)

// Result is the outcome of validating one sample: either it passes, or
// it carries the reason it was rejected. A rejected sample is dropped
// from its batch; it never aborts sibling validation (spec §4.2).
type Result struct {
	Reason string
}

func ok() *Result  { return nil }
func fail(format string, a ...any) *Result {
	return &Result{Reason: fmt.Sprintf(format, a...)}
}

// HeartRate checks 15 <= bpm <= 300 (spec §4.2, §8.3 boundary cases).
func HeartRate(s model.HeartRateSample, cfg config.ValidationConfig) *Result {
	if s.BPM < cfg.HeartRateMin || s.BPM > cfg.HeartRateMax {
		return fail("heart rate %d outside range [%d, %d]", s.BPM, cfg.HeartRateMin, cfg.HeartRateMax)
	}
	if s.RestingBPM != nil && (*s.RestingBPM < cfg.HeartRateMin || *s.RestingBPM > cfg.HeartRateMax) {
		return fail("resting heart rate %d outside range [%d, %d]", *s.RestingBPM, cfg.HeartRateMin, cfg.HeartRateMax)
	}
	return ok()
}

// BloodPressure checks systolic/diastolic ranges and systolic > diastolic.
func BloodPressure(s model.BloodPressureSample, cfg config.ValidationConfig) *Result {
	if s.Systolic < cfg.SystolicMin || s.Systolic > cfg.SystolicMax {
		return fail("systolic %d outside range [%d, %d]", s.Systolic, cfg.SystolicMin, cfg.SystolicMax)
	}
	if s.Diastolic < cfg.DiastolicMin || s.Diastolic > cfg.DiastolicMax {
		return fail("diastolic %d outside range [%d, %d]", s.Diastolic, cfg.DiastolicMin, cfg.DiastolicMax)
	}
	if s.Systolic <= s.Diastolic {
		return fail("systolic %d must be greater than diastolic %d", s.Systolic, s.Diastolic)
	}
	return ok()
}

// Sleep checks efficiency range, end > start, and phase-minute sum
// within tolerance of (end - start).
func Sleep(s model.SleepSample, cfg config.ValidationConfig) *Result {
	if s.Efficiency < cfg.SleepEfficiencyMin || s.Efficiency > cfg.SleepEfficiencyMax {
		return fail("sleep efficiency %.1f outside range [%.1f, %.1f]", s.Efficiency, cfg.SleepEfficiencyMin, cfg.SleepEfficiencyMax)
	}
	if !s.SleepEnd.After(s.SleepStart) {
		return fail("sleep_end must be after sleep_start")
	}
	spanMinutes := int(s.SleepEnd.Sub(s.SleepStart).Minutes())
	phaseSum := s.DeepSleepMinutes + s.RemSleepMinutes + s.LightSleepMinutes + s.AwakeMinutes
	diff := phaseSum - spanMinutes
	if diff < 0 {
		diff = -diff
	}
	if diff > cfg.SleepDurationToleranceMinutes {
		return fail("sleep phase minutes %d differ from span %d by more than tolerance %d", phaseSum, spanMinutes, cfg.SleepDurationToleranceMinutes)
	}
	return ok()
}

// Activity checks steps, distance, and calories ceilings.
func Activity(s model.ActivitySample, cfg config.ValidationConfig) *Result {
	if s.StepCount < cfg.StepsMin || s.StepCount > cfg.StepsMax {
		return fail("step count %d outside range [%d, %d]", s.StepCount, cfg.StepsMin, cfg.StepsMax)
	}
	distanceKm := s.DistanceMeters / 1000.0
	if distanceKm > cfg.DistanceMaxKm {
		return fail("distance %.2f km exceeds max %.2f km", distanceKm, cfg.DistanceMaxKm)
	}
	totalCalories := s.ActiveEnergyBurnedKcal + s.BasalEnergyBurnedKcal
	if totalCalories > cfg.CaloriesMax {
		return fail("calories %.1f exceed max %.1f", totalCalories, cfg.CaloriesMax)
	}
	return ok()
}

// GPSCoordinate checks a workout-route point's lat/lon bounds.
func GPSCoordinate(lat, lon float64, cfg config.ValidationConfig) *Result {
	if lat < cfg.LatitudeMin || lat > cfg.LatitudeMax {
		return fail("latitude %.6f outside range [%.1f, %.1f]", lat, cfg.LatitudeMin, cfg.LatitudeMax)
	}
	if lon < cfg.LongitudeMin || lon > cfg.LongitudeMax {
		return fail("longitude %.6f outside range [%.1f, %.1f]", lon, cfg.LongitudeMin, cfg.LongitudeMax)
	}
	return ok()
}

// Workout checks heart-rate fields and max duration.
func Workout(s model.WorkoutSample, cfg config.ValidationConfig) *Result {
	if s.AvgHeartRate != nil && (*s.AvgHeartRate < cfg.WorkoutHeartRateMin || *s.AvgHeartRate > cfg.WorkoutHeartRateMax) {
		return fail("workout avg heart rate %d outside range [%d, %d]", *s.AvgHeartRate, cfg.WorkoutHeartRateMin, cfg.WorkoutHeartRateMax)
	}
	if s.MaxHeartRate != nil && (*s.MaxHeartRate < cfg.WorkoutHeartRateMin || *s.MaxHeartRate > cfg.WorkoutHeartRateMax) {
		return fail("workout max heart rate %d outside range [%d, %d]", *s.MaxHeartRate, cfg.WorkoutHeartRateMin, cfg.WorkoutHeartRateMax)
	}
	if !s.EndedAt.After(s.StartedAt) {
		return fail("workout ended_at must be after started_at")
	}
	maxDuration := float64(cfg.WorkoutMaxDurationHours)
	if s.EndedAt.Sub(s.StartedAt).Hours() > maxDuration {
		return fail("workout duration exceeds max %d hours", cfg.WorkoutMaxDurationHours)
	}
	return ok()
}

// BloodGlucose checks mg/dL and insulin-unit ceilings.
func BloodGlucose(s model.BloodGlucoseSample, cfg config.ValidationConfig) *Result {
	if int(s.MgPerDL) < cfg.BloodGlucoseMin || int(s.MgPerDL) > cfg.BloodGlucoseMax {
		return fail("blood glucose %.1f outside range [%d, %d]", s.MgPerDL, cfg.BloodGlucoseMin, cfg.BloodGlucoseMax)
	}
	if s.InsulinUnits != nil && *s.InsulinUnits > cfg.InsulinMaxUnits {
		return fail("insulin units %.1f exceed max %.1f", *s.InsulinUnits, cfg.InsulinMaxUnits)
	}
	return ok()
}

// Cycling checks speed, power, and cadence ceilings against a
// workout's reported peak values.
func Cycling(speedKmh float64, powerW, cadenceRpm int, cfg config.ValidationConfig) *Result {
	if speedKmh > cfg.CyclingSpeedMaxKmh {
		return fail("cycling speed %.1f km/h exceeds max %.1f", speedKmh, cfg.CyclingSpeedMaxKmh)
	}
	if powerW > cfg.CyclingPowerMaxW {
		return fail("cycling power %d W exceeds max %d", powerW, cfg.CyclingPowerMaxW)
	}
	if cadenceRpm > cfg.CyclingCadenceMax {
		return fail("cycling cadence %d rpm exceeds max %d", cadenceRpm, cfg.CyclingCadenceMax)
	}
	return ok()
}

// UnderwaterDepth checks depth and diving-duration ceilings.
func UnderwaterDepth(depthMeters float64, durationSecs int, cfg config.ValidationConfig) *Result {
	if depthMeters < 0 || depthMeters > cfg.DepthMaxMeters {
		return fail("depth %.1f m outside range [0, %.1f]", depthMeters, cfg.DepthMaxMeters)
	}
	if durationSecs > cfg.DivingDurationMaxSecs {
		return fail("diving duration %d s exceeds max %d", durationSecs, cfg.DivingDurationMaxSecs)
	}
	return ok()
}

// ReproductiveHealth requires a non-empty value and a recognized
// privacy tier; there is no physiological range to check (spec §3.1).
func ReproductiveHealth(s model.ReproductiveHealthSample) *Result {
	if s.Value == "" {
		return fail("reproductive health sample missing value")
	}
	switch s.PrivacyTier {
	case model.PrivacyTierStandard, model.PrivacyTierSensitive, model.PrivacyTierHighlySensitive:
	default:
		return fail("unrecognized privacy tier %q", s.PrivacyTier)
	}
	return ok()
}

// Symptom requires a non-empty kind label; the value family has no
// shared unit, so range checking is left to the device's own schema.
func Symptom(s model.SymptomSample) *Result {
	if s.Kind_ == "" {
		return fail("symptom sample missing kind")
	}
	return ok()
}

// Sample dispatches to the per-kind check for any model.Sample. A
// sample is rejected only by its own field violations; it is never
// rejected for a peer's violation (spec §4.2).
func Sample(s model.Sample, cfg config.ValidationConfig) *Result {
	switch v := s.(type) {
	case model.HeartRateSample:
		return HeartRate(v, cfg)
	case model.BloodPressureSample:
		return BloodPressure(v, cfg)
	case model.SleepSample:
		return Sleep(v, cfg)
	case model.ActivitySample:
		return Activity(v, cfg)
	case model.WorkoutSample:
		return Workout(v, cfg)
	case model.BloodGlucoseSample:
		return BloodGlucose(v, cfg)
	case model.ReproductiveHealthSample:
		return ReproductiveHealth(v)
	case model.SymptomSample:
		return Symptom(v)
	default:
		return ok()
	}
}
