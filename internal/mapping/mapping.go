// Package mapping translates a device-native metric identifier (the
// HealthKit-style `HKQuantityTypeIdentifier...` form) to the canonical
// MetricKind the rest of the pipeline operates on (spec §6.2). The
// table is data-driven: seeded with an embedded static default and
// replaceable at runtime through Reload, which the admin
// reload-mappings endpoint calls with the posted entries.
package mapping

import (
	"fmt"
	"sync"

	"github.com/Ladvien/self-sensored/internal/model"
)

// defaultIdentifiers is the embedded static table (spec §6.2: "loadable
// either from an embedded static table or from a data_mappings table
// at startup"). Names follow Apple HealthKit's quantity/category type
// identifiers, the most common device-native export format.
var defaultIdentifiers = map[string]model.MetricKind{
	"HKQuantityTypeIdentifierHeartRate":              model.KindHeartRate,
	"HKQuantityTypeIdentifierRestingHeartRate":       model.KindHeartRate,
	"HKQuantityTypeIdentifierBloodPressureSystolic":  model.KindBloodPressure,
	"HKQuantityTypeIdentifierBloodPressureDiastolic": model.KindBloodPressure,
	"HKCategoryTypeIdentifierSleepAnalysis":          model.KindSleep,
	"HKQuantityTypeIdentifierStepCount":              model.KindActivity,
	"HKQuantityTypeIdentifierDistanceWalkingRunning":  model.KindActivity,
	"HKQuantityTypeIdentifierActiveEnergyBurned":      model.KindActivity,
	"HKQuantityTypeIdentifierBasalEnergyBurned":       model.KindActivity,
	"HKQuantityTypeIdentifierFlightsClimbed":          model.KindActivity,
	"HKWorkoutTypeIdentifier":                         model.KindWorkout,
	"HKQuantityTypeIdentifierBloodGlucose":            model.KindBloodGlucose,
	"HKQuantityTypeIdentifierInsulinDelivery":         model.KindBloodGlucose,
	"HKCategoryTypeIdentifierMenstrualFlow":           model.KindReproductiveHealth,
	"HKCategoryTypeIdentifierOvulationTestResult":     model.KindReproductiveHealth,
	"HKCategoryTypeIdentifierAbdominalCramps":         model.KindSymptom,
	"HKCategoryTypeIdentifierMoodChanges":             model.KindSymptom,
	"HKQuantityTypeIdentifierEnvironmentalAudioExposure": model.KindSymptom,
	"HKQuantityTypeIdentifierMindfulSession":          model.KindSymptom,
	"HKQuantityTypeIdentifierDietaryWater":            model.KindSymptom,
}

// Table is the runtime-mutable identifier -> kind mapping. Reads take
// a read lock so lookups stay cheap on the ingest hot path; reloads
// are rare (an admin operation) and take the write lock.
type Table struct {
	mu      sync.RWMutex
	entries map[string]model.MetricKind
}

// NewTable returns a Table seeded with the embedded defaults.
func NewTable() *Table {
	entries := make(map[string]model.MetricKind, len(defaultIdentifiers))
	for k, v := range defaultIdentifiers {
		entries[k] = v
	}
	return &Table{entries: entries}
}

// KindForIdentifier looks up the canonical kind for a device-native
// identifier string.
func (t *Table) KindForIdentifier(identifier string) (model.MetricKind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	kind, ok := t.entries[identifier]
	return kind, ok
}

// Reload atomically replaces the table's entries, validating that
// every value names a known MetricKind before committing (spec §6.2,
// the admin reload-mappings operation in SPEC_FULL §8).
func (t *Table) Reload(raw map[string]string) error {
	next := make(map[string]model.MetricKind, len(raw))
	for identifier, kindStr := range raw {
		kind := model.MetricKind(kindStr)
		switch kind {
		case model.KindHeartRate, model.KindBloodPressure, model.KindSleep, model.KindActivity,
			model.KindWorkout, model.KindBloodGlucose, model.KindReproductiveHealth, model.KindSymptom:
			next[identifier] = kind
		default:
			return fmt.Errorf("mapping: unrecognized metric kind %q for identifier %q", kindStr, identifier)
		}
	}

	t.mu.Lock()
	t.entries = next
	t.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current entries.
func (t *Table) Snapshot() map[string]model.MetricKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]model.MetricKind, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}
