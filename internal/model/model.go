// Package model defines the entities and sample types the ingestion
// pipeline operates on (spec §3).
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an immutable identifier; soft-deactivation only, never
// hard-deleted from the ingest hot path.
type User struct {
	ID       uuid.UUID
	Email    string
	Active   bool
	Metadata map[string]any
}

// ApiKey authenticates a client. The secret half is never stored or
// logged in plaintext — only its Argon2 hash.
type ApiKey struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	SecretHash       string
	Scopes           []string
	ExpiresAt        *time.Time
	RateLimitPerHour *int
	Active           bool
}

// ProcessingError is one entry in a RawIngestion's structured error
// list, or in a BatchResult's per-sample error list.
type ProcessingError struct {
	Kind   MetricKind `json:"kind"`
	Index  *int       `json:"index,omitempty"`
	Reason string     `json:"reason"`
}

// RawIngestion is the durable record of a received request body —
// the single source of truth for replay.
type RawIngestion struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ApiKeyID         uuid.UUID
	Payload          []byte
	ContentHash      string
	SizeBytes        int64
	Status           ProcessingStatus
	ProcessingErrors []ProcessingError
	IngestedAt       time.Time
	ProcessedAt      *time.Time
}

// Sample is implemented by every health-metric variant so the
// Validator/Deduplicator/Chunker/BatchProcessor can operate on a
// homogeneous bucket without a type switch at every step.
type Sample interface {
	Kind() MetricKind
	// UpsertKey is the semantic key this sample conflicts on, per the
	// kind's upsert-key tuple (§3.1). Implementations normalize the
	// timestamps within to UTC millisecond precision themselves.
	UpsertKey() string
	// SourceDevice is empty when not reported.
	SourceDevice() string
}

// HeartRateSample: key = (user, recorded_at); 11 columns bound per row.
type HeartRateSample struct {
	UserID            uuid.UUID
	RecordedAt        time.Time
	BPM               int
	RestingBPM        *int
	Context           ActivityContext
	Source            string
	Min               *int
	Max               *int
	Avg               *int
	WalkingAvg        *int
	CreatedAt         time.Time
}

func (s HeartRateSample) Kind() MetricKind    { return KindHeartRate }
func (s HeartRateSample) SourceDevice() string { return s.Source }
func (s HeartRateSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.RecordedAt)
}

// BloodPressureSample: key = (user, recorded_at); 6 columns.
type BloodPressureSample struct {
	UserID     uuid.UUID
	RecordedAt time.Time
	Systolic   int
	Diastolic  int
	Pulse      *int
	Source     string
}

func (s BloodPressureSample) Kind() MetricKind    { return KindBloodPressure }
func (s BloodPressureSample) SourceDevice() string { return s.Source }
func (s BloodPressureSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.RecordedAt)
}

// SleepSample: key = (user, sleep_start, sleep_end); 10 columns.
type SleepSample struct {
	UserID            uuid.UUID
	SleepStart         time.Time
	SleepEnd           time.Time
	DurationMinutes    int
	DeepSleepMinutes   int
	RemSleepMinutes    int
	LightSleepMinutes  int
	AwakeMinutes       int
	Efficiency         float64
	Source             string
}

func (s SleepSample) Kind() MetricKind    { return KindSleep }
func (s SleepSample) SourceDevice() string { return s.Source }
func (s SleepSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.SleepStart) + "|" + normalizeMillis(s.SleepEnd)
}

// ActivitySample: key = (user, recorded_date); 19 columns (merged
// across devices per day, spec §3.1/§3.2.7).
type ActivitySample struct {
	UserID                  uuid.UUID
	RecordedDate            time.Time
	StepCount               int
	DistanceMeters          float64
	ActiveEnergyBurnedKcal  float64
	BasalEnergyBurnedKcal   float64
	FlightsClimbed          int
	ExerciseMinutes         int
	StandHours              int
	Context                 ActivityContext
	Source                  string
	// Extended per-device roll-up fields to reach the spec's 19-column
	// footprint without re-introducing a second table.
	MoveMinutes             int
	AvgHeartRate            *int
	MaxHeartRate            *int
	VO2Max                  *float64
	FlightsDescended        int
	DistanceCyclingMeters   float64
	DistanceSwimmingMeters  float64
	NikeFuelPoints          int
}

func (s ActivitySample) Kind() MetricKind    { return KindActivity }
func (s ActivitySample) SourceDevice() string { return s.Source }
func (s ActivitySample) UpsertKey() string {
	return s.UserID.String() + "|" + s.RecordedDate.Format("2006-01-02")
}

// WorkoutSample: key = (user, started_at); 10 columns.
type WorkoutSample struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	WorkoutType      WorkoutType
	StartedAt        time.Time
	EndedAt          time.Time
	TotalEnergyKcal  *float64
	DistanceMeters   *float64
	AvgHeartRate     *int
	MaxHeartRate     *int
	Source           string
}

func (s WorkoutSample) Kind() MetricKind    { return KindWorkout }
func (s WorkoutSample) SourceDevice() string { return s.Source }
func (s WorkoutSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.StartedAt)
}

// BloodGlucoseSample: key = (user, recorded_at, glucose_source); 8 cols.
type BloodGlucoseSample struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	RecordedAt     time.Time
	MgPerDL        float64
	GlucoseSource  string
	InsulinUnits   *float64
	Context        ActivityContext
	Source         string
}

func (s BloodGlucoseSample) Kind() MetricKind    { return KindBloodGlucose }
func (s BloodGlucoseSample) SourceDevice() string { return s.Source }
func (s BloodGlucoseSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.RecordedAt) + "|" + s.GlucoseSource
}

// ReproductiveHealthSample: key = (user, recorded_at); carries a
// privacy tier that governs mandatory audit-log emission (§3.2.6).
type ReproductiveHealthSample struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	RecordedAt  time.Time
	Kind_       string
	Value       string
	PrivacyTier PrivacyTier
	Source      string
}

func (s ReproductiveHealthSample) Kind() MetricKind    { return KindReproductiveHealth }
func (s ReproductiveHealthSample) SourceDevice() string { return s.Source }
func (s ReproductiveHealthSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.RecordedAt)
}

// SymptomSample generalizes the symptom/environmental/mindfulness/
// nutrition family (spec §3.1 final bullet) into one shape since they
// share the same (user, recorded_at, kind) key and scalar-value form.
type SymptomSample struct {
	UserID     uuid.UUID
	RecordedAt time.Time
	Kind_      string
	Value      float64
	Unit       string
	Source     string
}

func (s SymptomSample) Kind() MetricKind    { return KindSymptom }
func (s SymptomSample) SourceDevice() string { return s.Source }
func (s SymptomSample) UpsertKey() string {
	return s.UserID.String() + "|" + normalizeMillis(s.RecordedAt) + "|" + s.Kind_
}

func normalizeMillis(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
}
