package ingest

import (
	"fmt"

	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
)

// canonicalTypeForKind is the inverse of the Type-string switch in
// classify.go, used when expanding a device-native record into
// canonical-shaped records (spec §6.2: "translated to the canonical
// shape before classification").
func canonicalTypeForKind(kind model.MetricKind) string {
	switch kind {
	case model.KindHeartRate:
		return "HeartRate"
	case model.KindBloodPressure:
		return "BloodPressure"
	case model.KindSleep:
		return "Sleep"
	case model.KindActivity:
		return "Activity"
	case model.KindBloodGlucose:
		return "BloodGlucose"
	case model.KindReproductiveHealth:
		return "ReproductiveHealth"
	case model.KindSymptom:
		return "Symptom"
	default:
		return ""
	}
}

// translateNative rewrites any device-native metric record (one
// bearing an Identifier, per HealthKit's
// `{name, units, data:[{qty, date, source}]}` shape) into zero or
// more canonical records, explained in terms of the mapping table.
// Records that are already canonical (no Identifier) pass through
// unchanged.
func translateNative(env *envelope, table *mapping.Table) []model.ProcessingError {
	var errs []model.ProcessingError
	translated := make([]metricRecord, 0, len(env.Data.Metrics))

	for i, m := range env.Data.Metrics {
		if m.Identifier == "" {
			translated = append(translated, m)
			continue
		}

		kind, ok := table.KindForIdentifier(m.Identifier)
		if !ok {
			idx := i
			errs = append(errs, model.ProcessingError{Reason: fmt.Sprintf("unknown device-native identifier %q", m.Identifier), Index: &idx})
			continue
		}

		for _, dp := range m.NativeData {
			canon := metricRecord{
				Type:         canonicalTypeForKind(kind),
				SourceDevice: dp.Source,
			}
			recordedAt := dp.Date
			canon.RecordedAt = &recordedAt
			applyNativeQuantity(&canon, kind, dp.Qty, m.Units)
			translated = append(translated, canon)
		}
	}

	env.Data.Metrics = translated
	return errs
}

// applyNativeQuantity maps a device-native (qty, units) pair onto the
// one canonical field the kind's classifier reads. HealthKit exports
// one quantity per data point, so only the dominant field for each
// kind is populated. Both blood-pressure identifiers (systolic and
// diastolic) set only Systolic and nothing merges the pair, so a
// translated blood-pressure record has no diastolic value and
// classify rejects it.
func applyNativeQuantity(canon *metricRecord, kind model.MetricKind, qty float64, units string) {
	intQty := int(qty)
	switch kind {
	case model.KindHeartRate:
		canon.HeartRate = &intQty
	case model.KindBloodPressure:
		canon.Systolic = &intQty
	case model.KindActivity:
		switch units {
		case "count", "steps":
			canon.StepCount = &intQty
		case "kcal":
			canon.ActiveEnergyBurnedKcal = &qty
		case "m", "meters":
			canon.DistanceMeters = &qty
		default:
			canon.StepCount = &intQty
		}
	case model.KindBloodGlucose:
		canon.MgPerDL = &qty
	case model.KindReproductiveHealth:
		canon.Value = fmt.Sprintf("%v", qty)
	case model.KindSymptom:
		canon.NumericValue = &qty
		canon.Unit = units
	}
}
