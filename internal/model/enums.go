package model

import "strings"

// ActivityContext tags the state a user was in when an activity sample
// was recorded.
type ActivityContext string

const (
	ActivityContextResting   ActivityContext = "resting"
	ActivityContextWalking   ActivityContext = "walking"
	ActivityContextRunning   ActivityContext = "running"
	ActivityContextCycling   ActivityContext = "cycling"
	ActivityContextExercise  ActivityContext = "exercise"
	ActivityContextSleeping  ActivityContext = "sleeping"
	ActivityContextSedentary ActivityContext = "sedentary"
	ActivityContextActive    ActivityContext = "active"
	ActivityContextPostMeal  ActivityContext = "post_meal"
	ActivityContextStressed  ActivityContext = "stressed"
	ActivityContextRecovery  ActivityContext = "recovery"
)

// ParseActivityContext accepts the fuzzy aliases device exports use in
// addition to the canonical snake_case form. Returns false if nothing
// matches, mirroring the source's Option<Self> rather than defaulting.
func ParseActivityContext(s string) (ActivityContext, bool) {
	switch strings.ToLower(s) {
	case "resting":
		return ActivityContextResting, true
	case "walking":
		return ActivityContextWalking, true
	case "running":
		return ActivityContextRunning, true
	case "cycling":
		return ActivityContextCycling, true
	case "exercise", "exercising":
		return ActivityContextExercise, true
	case "sleeping", "sleep":
		return ActivityContextSleeping, true
	case "sedentary":
		return ActivityContextSedentary, true
	case "active":
		return ActivityContextActive, true
	case "post_meal", "post-meal", "after_eating":
		return ActivityContextPostMeal, true
	case "stressed", "stress":
		return ActivityContextStressed, true
	case "recovery", "recovering":
		return ActivityContextRecovery, true
	default:
		return "", false
	}
}

// WorkoutType is the kind of exercise session recorded by a workout.
type WorkoutType string

const (
	WorkoutTypeWalking           WorkoutType = "walking"
	WorkoutTypeRunning           WorkoutType = "running"
	WorkoutTypeCycling           WorkoutType = "cycling"
	WorkoutTypeSwimming          WorkoutType = "swimming"
	WorkoutTypeStrengthTraining  WorkoutType = "strength_training"
	WorkoutTypeYoga              WorkoutType = "yoga"
	WorkoutTypePilates           WorkoutType = "pilates"
	WorkoutTypeHiit              WorkoutType = "hiit"
	WorkoutTypeSports            WorkoutType = "sports"
	WorkoutTypeOther             WorkoutType = "other"
)

// ParseWorkoutType falls back to WorkoutTypeOther for anything
// unrecognized, matching the device-native ingestion path which must
// never reject a workout purely for an unfamiliar type string.
func ParseWorkoutType(s string) WorkoutType {
	switch strings.ToLower(s) {
	case "walking", "walk":
		return WorkoutTypeWalking
	case "running", "run":
		return WorkoutTypeRunning
	case "cycling", "bike", "biking":
		return WorkoutTypeCycling
	case "swimming", "swim":
		return WorkoutTypeSwimming
	case "strength_training", "strength", "weights":
		return WorkoutTypeStrengthTraining
	case "yoga":
		return WorkoutTypeYoga
	case "pilates":
		return WorkoutTypePilates
	case "hiit", "high_intensity_interval_training":
		return WorkoutTypeHiit
	case "sports", "sport":
		return WorkoutTypeSports
	default:
		return WorkoutTypeOther
	}
}

// PrivacyTier governs which samples always get an audit-trail entry on
// write, independent of the logging configuration.
type PrivacyTier string

const (
	PrivacyTierStandard        PrivacyTier = "standard"
	PrivacyTierSensitive       PrivacyTier = "sensitive"
	PrivacyTierHighlySensitive PrivacyTier = "highly_sensitive"
)

// ProcessingStatus is the RawIngestion lifecycle state. Monotone except
// for error -> processed, which only the Reprocessor may perform.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusPartial   ProcessingStatus = "partial"
	StatusError     ProcessingStatus = "error"
)

// MetricKind identifies one of the homogeneous sample families the
// Validator/Deduplicator/Chunker operate over.
type MetricKind string

const (
	KindHeartRate           MetricKind = "heart_rate"
	KindBloodPressure       MetricKind = "blood_pressure"
	KindSleep               MetricKind = "sleep"
	KindActivity            MetricKind = "activity"
	KindWorkout             MetricKind = "workout"
	KindBloodGlucose        MetricKind = "blood_glucose"
	KindReproductiveHealth  MetricKind = "reproductive_health"
	KindSymptom             MetricKind = "symptom"
)

// ColsPerRow is the number of bind parameters one upsert row of this
// kind consumes. These values come directly from spec's data model
// (§3.1) and feed the Chunker's parameter-budget invariant.
func (k MetricKind) ColsPerRow() int {
	switch k {
	case KindHeartRate:
		return 11
	case KindBloodPressure:
		return 6
	case KindSleep:
		return 10
	case KindActivity:
		return 19
	case KindWorkout:
		return 10
	case KindBloodGlucose:
		return 8
	case KindReproductiveHealth:
		return 7
	case KindSymptom:
		return 6
	default:
		return 6
	}
}
