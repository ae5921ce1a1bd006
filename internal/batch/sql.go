package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ladvien/self-sensored/internal/model"
)

// upsertSpec describes how a metric kind's chunk is turned into one
// parameterised statement (spec §4.6.2 step 5.b): the table, its
// column order (which must match the emission order of the kind's
// *Args function in args.go and MetricKind.ColsPerRow), the conflict
// target, and the per-column
// update expression used on conflict.
type upsertSpec struct {
	table        string
	columns      []string
	conflictCols []string
	// updateExprs maps a column name to its "excluded" update
	// expression. Columns present in conflictCols are omitted.
	updateExprs map[string]string
	// lastWins marks kinds whose conflict resolution is a plain
	// last-write-wins overwrite, as opposed to activitySpec's
	// field-wise GREATEST roll-up. Only last-wins kinds degrade to
	// DO NOTHING when intra-batch deduplication is disabled, since
	// that degrade-path approximates dedup at the database rather
	// than changing the merge semantics itself.
	lastWins bool
}

func lastWinsUpdates(cols []string) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c] = "excluded." + c
	}
	return out
}

var heartRateSpec = upsertSpec{
	table:        "heart_rate_samples",
	columns:      []string{"user_id", "recorded_at", "bpm", "resting_bpm", "context", "source", "min_bpm", "max_bpm", "avg_bpm", "walking_avg_bpm", "created_at"},
	conflictCols: []string{"user_id", "recorded_at"},
	updateExprs:  lastWinsUpdates([]string{"bpm", "resting_bpm", "context", "source", "min_bpm", "max_bpm", "avg_bpm", "walking_avg_bpm", "created_at"}),
	lastWins:     true,
}

var bloodPressureSpec = upsertSpec{
	table:        "blood_pressure_samples",
	columns:      []string{"user_id", "recorded_at", "systolic", "diastolic", "pulse", "source"},
	conflictCols: []string{"user_id", "recorded_at"},
	updateExprs:  lastWinsUpdates([]string{"systolic", "diastolic", "pulse", "source"}),
	lastWins:     true,
}

var sleepSpec = upsertSpec{
	table:        "sleep_samples",
	columns:      []string{"user_id", "sleep_start", "sleep_end", "duration_minutes", "deep_sleep_minutes", "rem_sleep_minutes", "light_sleep_minutes", "awake_minutes", "efficiency", "source"},
	conflictCols: []string{"user_id", "sleep_start", "sleep_end"},
	updateExprs:  lastWinsUpdates([]string{"duration_minutes", "deep_sleep_minutes", "rem_sleep_minutes", "light_sleep_minutes", "awake_minutes", "efficiency", "source"}),
	lastWins:     true,
}

var workoutSpec = upsertSpec{
	table:        "workout_samples",
	columns:      []string{"id", "user_id", "workout_type", "started_at", "ended_at", "total_energy_kcal", "distance_meters", "avg_heart_rate", "max_heart_rate", "source"},
	conflictCols: []string{"user_id", "started_at"},
	updateExprs:  lastWinsUpdates([]string{"workout_type", "ended_at", "total_energy_kcal", "distance_meters", "avg_heart_rate", "max_heart_rate", "source"}),
	lastWins:     true,
}

var bloodGlucoseSpec = upsertSpec{
	table:        "blood_glucose_samples",
	columns:      []string{"id", "user_id", "recorded_at", "mg_per_dl", "glucose_source", "insulin_units", "context", "source"},
	conflictCols: []string{"user_id", "recorded_at", "glucose_source"},
	updateExprs:  lastWinsUpdates([]string{"mg_per_dl", "insulin_units", "context", "source"}),
	lastWins:     true,
}

var reproductiveHealthSpec = upsertSpec{
	table:        "reproductive_health_samples",
	columns:      []string{"id", "user_id", "recorded_at", "kind", "value", "privacy_tier", "source"},
	conflictCols: []string{"user_id", "recorded_at"},
	updateExprs:  lastWinsUpdates([]string{"kind", "value", "privacy_tier", "source"}),
	lastWins:     true,
}

var symptomSpec = upsertSpec{
	table:        "symptom_samples",
	columns:      []string{"user_id", "recorded_at", "kind", "value", "unit", "source"},
	conflictCols: []string{"user_id", "recorded_at", "kind"},
	updateExprs:  lastWinsUpdates([]string{"value", "unit", "source"}),
	lastWins:     true,
}

// activitySpec merges numeric fields by GREATEST on conflict, since an
// activity row is a per-day roll-up that may be re-submitted across
// separate requests from different devices (spec §3.2.7, §8.4
// scenario 2) — the in-batch Deduplicator only merges within one
// request, so the database itself must preserve the max across
// requests.
var activitySpec = upsertSpec{
	table: "activity_samples",
	columns: []string{
		"user_id", "recorded_date", "step_count", "distance_meters",
		"active_energy_burned_kcal", "basal_energy_burned_kcal", "flights_climbed",
		"exercise_minutes", "stand_hours", "context", "source", "move_minutes",
		"avg_heart_rate", "max_heart_rate", "vo2_max", "flights_descended",
		"distance_cycling_meters", "distance_swimming_meters", "nike_fuel_points",
	},
	conflictCols: []string{"user_id", "recorded_date"},
	updateExprs: map[string]string{
		"step_count":                "GREATEST(activity_samples.step_count, excluded.step_count)",
		"distance_meters":           "GREATEST(activity_samples.distance_meters, excluded.distance_meters)",
		"active_energy_burned_kcal": "GREATEST(activity_samples.active_energy_burned_kcal, excluded.active_energy_burned_kcal)",
		"basal_energy_burned_kcal":  "GREATEST(activity_samples.basal_energy_burned_kcal, excluded.basal_energy_burned_kcal)",
		"flights_climbed":           "GREATEST(activity_samples.flights_climbed, excluded.flights_climbed)",
		"exercise_minutes":          "GREATEST(activity_samples.exercise_minutes, excluded.exercise_minutes)",
		"stand_hours":               "GREATEST(activity_samples.stand_hours, excluded.stand_hours)",
		"context":                   "excluded.context",
		"source":                    "excluded.source",
		"move_minutes":              "GREATEST(activity_samples.move_minutes, excluded.move_minutes)",
		"avg_heart_rate":            "GREATEST(activity_samples.avg_heart_rate, excluded.avg_heart_rate)",
		"max_heart_rate":            "GREATEST(activity_samples.max_heart_rate, excluded.max_heart_rate)",
		"vo2_max":                   "GREATEST(activity_samples.vo2_max, excluded.vo2_max)",
		"flights_descended":         "GREATEST(activity_samples.flights_descended, excluded.flights_descended)",
		"distance_cycling_meters":   "GREATEST(activity_samples.distance_cycling_meters, excluded.distance_cycling_meters)",
		"distance_swimming_meters":  "GREATEST(activity_samples.distance_swimming_meters, excluded.distance_swimming_meters)",
		"nike_fuel_points":          "GREATEST(activity_samples.nike_fuel_points, excluded.nike_fuel_points)",
	},
}

func specForKind(kind model.MetricKind) upsertSpec {
	switch kind {
	case model.KindHeartRate:
		return heartRateSpec
	case model.KindBloodPressure:
		return bloodPressureSpec
	case model.KindSleep:
		return sleepSpec
	case model.KindActivity:
		return activitySpec
	case model.KindWorkout:
		return workoutSpec
	case model.KindBloodGlucose:
		return bloodGlucoseSpec
	case model.KindReproductiveHealth:
		return reproductiveHealthSpec
	case model.KindSymptom:
		return symptomSpec
	default:
		panic(fmt.Sprintf("batch: no upsert spec for kind %q", kind))
	}
}

// buildUpsert renders the "INSERT ... VALUES (...), (...) ON CONFLICT
// (...) DO UPDATE SET ..." statement for nRows rows of this spec's
// shape (spec §4.6.2 step 5.b). When dedupEnabled is false, a
// last-wins spec degrades its conflict clause to DO NOTHING instead:
// with intra-batch deduplication off, the database becomes the only
// place duplicate keys within the chunk get resolved, and "do nothing"
// is the only resolution that doesn't silently pick an arbitrary
// winner among them.
func (s upsertSpec) buildUpsert(nRows int, dedupEnabled bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.table, strings.Join(s.columns, ", "))

	param := 1
	for row := 0; row < nRows; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for col := range s.columns {
			if col > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(param))
			param++
		}
		b.WriteByte(')')
	}

	if s.lastWins && !dedupEnabled {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(s.conflictCols, ", "))
		return b.String()
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", strings.Join(s.conflictCols, ", "))
	first := true
	for _, col := range s.columns {
		expr, ok := s.updateExprs[col]
		if !ok {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = %s", col, expr)
	}
	return b.String()
}
