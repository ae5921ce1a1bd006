// Package dedup implements the intra-batch deduplicator (C3): for a
// homogeneous bucket of samples of one kind, collapse rows sharing an
// upsert key down to one representative per the kind's merge policy.
package dedup

import (
	"github.com/Ladvien/self-sensored/internal/model"
)

// Stats reports the collapse counts for one bucket's dedup pass
// (spec §4.3 step 3).
type Stats struct {
	DuplicatesFound   int
	DuplicatesRemoved int
}

// MergePolicy is last-wins (input order) for scalar medical readings,
// workouts, and sleep intervals, and field-wise-max for activity
// roll-ups (spec §4.3 step 2).
type MergePolicy int

const (
	LastWins MergePolicy = iota
	FieldMax
)

// PolicyForKind returns the merge policy mandated for a metric kind.
func PolicyForKind(kind model.MetricKind) MergePolicy {
	if kind == model.KindActivity {
		return FieldMax
	}
	return LastWins
}

// HeartRate dedups a bucket of heart-rate samples: last-wins by input
// order (spec §4.3 step 2, scalar medical readings).
func HeartRate(samples []model.HeartRateSample) ([]model.HeartRateSample, Stats) {
	byKey := make(map[string]model.HeartRateSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s // last-wins: later occurrences overwrite
	}

	out := make([]model.HeartRateSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

// BloodPressure dedups last-wins by upsert key.
func BloodPressure(samples []model.BloodPressureSample) ([]model.BloodPressureSample, Stats) {
	byKey := make(map[string]model.BloodPressureSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.BloodPressureSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

// Sleep and Workout are last-wins, same shape as HeartRate/BloodPressure.
func Sleep(samples []model.SleepSample) ([]model.SleepSample, Stats) {
	byKey := make(map[string]model.SleepSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.SleepSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

func Workout(samples []model.WorkoutSample) ([]model.WorkoutSample, Stats) {
	byKey := make(map[string]model.WorkoutSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.WorkoutSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

// BloodGlucose dedups last-wins by (user, recorded_at, glucose_source)
// (spec §8.4 scenario 3: CGM dedup collapses only within a matching
// source, so two sources at the same timestamp both survive).
func BloodGlucose(samples []model.BloodGlucoseSample) ([]model.BloodGlucoseSample, Stats) {
	byKey := make(map[string]model.BloodGlucoseSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.BloodGlucoseSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

// ReproductiveHealth and Symptom are last-wins, same shape as HeartRate.
func ReproductiveHealth(samples []model.ReproductiveHealthSample) ([]model.ReproductiveHealthSample, Stats) {
	byKey := make(map[string]model.ReproductiveHealthSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.ReproductiveHealthSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

func Symptom(samples []model.SymptomSample) ([]model.SymptomSample, Stats) {
	byKey := make(map[string]model.SymptomSample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		if _, exists := byKey[key]; exists {
			stats.DuplicatesFound++
			stats.DuplicatesRemoved++
		} else {
			order = append(order, key)
		}
		byKey[key] = s
	}

	out := make([]model.SymptomSample, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, stats
}

// Activity dedups by (user, recorded_date) with field-wise max across
// devices; source_device is the last non-null observed (spec §3.2.7,
// §8.4 scenario 2).
func Activity(samples []model.ActivitySample) ([]model.ActivitySample, Stats) {
	merged := make(map[string]model.ActivitySample, len(samples))
	order := make([]string, 0, len(samples))
	var stats Stats

	for _, s := range samples {
		key := s.UpsertKey()
		existing, exists := merged[key]
		if !exists {
			merged[key] = s
			order = append(order, key)
			continue
		}

		stats.DuplicatesFound++
		stats.DuplicatesRemoved++
		merged[key] = mergeActivityMax(existing, s)
	}

	out := make([]model.ActivitySample, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out, stats
}

func mergeActivityMax(a, b model.ActivitySample) model.ActivitySample {
	out := a
	out.StepCount = maxInt(a.StepCount, b.StepCount)
	out.DistanceMeters = maxFloat(a.DistanceMeters, b.DistanceMeters)
	out.ActiveEnergyBurnedKcal = maxFloat(a.ActiveEnergyBurnedKcal, b.ActiveEnergyBurnedKcal)
	out.BasalEnergyBurnedKcal = maxFloat(a.BasalEnergyBurnedKcal, b.BasalEnergyBurnedKcal)
	out.FlightsClimbed = maxInt(a.FlightsClimbed, b.FlightsClimbed)
	out.ExerciseMinutes = maxInt(a.ExerciseMinutes, b.ExerciseMinutes)
	out.StandHours = maxInt(a.StandHours, b.StandHours)
	out.MoveMinutes = maxInt(a.MoveMinutes, b.MoveMinutes)
	out.FlightsDescended = maxInt(a.FlightsDescended, b.FlightsDescended)
	out.DistanceCyclingMeters = maxFloat(a.DistanceCyclingMeters, b.DistanceCyclingMeters)
	out.DistanceSwimmingMeters = maxFloat(a.DistanceSwimmingMeters, b.DistanceSwimmingMeters)
	out.NikeFuelPoints = maxInt(a.NikeFuelPoints, b.NikeFuelPoints)

	out.AvgHeartRate = maxIntPtr(a.AvgHeartRate, b.AvgHeartRate)
	out.MaxHeartRate = maxIntPtr(a.MaxHeartRate, b.MaxHeartRate)
	out.VO2Max = maxFloatPtr(a.VO2Max, b.VO2Max)

	// source_device: last non-null observed, deterministic by input
	// order (spec §3.2.7) — b arrived after a.
	if b.Source != "" {
		out.Source = b.Source
	}

	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxIntPtr(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a >= *b {
		return a
	}
	return b
}

func maxFloatPtr(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a >= *b {
		return a
	}
	return b
}
