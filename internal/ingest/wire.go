package ingest

import "time"

// envelope is the canonical wire shape (spec §6.2). Device-native
// payloads are rewritten into this shape by translateNative before
// classification ever sees them.
type envelope struct {
	Data struct {
		Metrics  []metricRecord  `json:"metrics"`
		Workouts []workoutRecord `json:"workouts"`
	} `json:"data"`
}

// metricRecord is a flat, sparse record: only the fields relevant to
// its Type are populated. This mirrors how mobile health exports
// actually shape a mixed-kind batch — one envelope, heterogeneous
// records — rather than one strongly-typed array per kind.
type metricRecord struct {
	Type         string     `json:"type"`
	RecordedAt   *time.Time `json:"recorded_at,omitempty"`
	RecordedDate *string    `json:"recorded_date,omitempty"`
	SleepStart   *time.Time `json:"sleep_start,omitempty"`
	SleepEnd     *time.Time `json:"sleep_end,omitempty"`
	SourceDevice string     `json:"source_device,omitempty"`
	Context      string     `json:"context,omitempty"`

	HeartRate           *int `json:"heart_rate,omitempty"`
	RestingHeartRate    *int `json:"resting_heart_rate,omitempty"`
	MinHeartRate        *int `json:"min_heart_rate,omitempty"`
	MaxHeartRate        *int `json:"max_heart_rate,omitempty"`
	AvgHeartRate        *int `json:"avg_heart_rate,omitempty"`
	WalkingAvgHeartRate *int `json:"walking_avg_heart_rate,omitempty"`

	Systolic  *int `json:"systolic,omitempty"`
	Diastolic *int `json:"diastolic,omitempty"`
	Pulse     *int `json:"pulse,omitempty"`

	DurationMinutes   *int     `json:"duration_minutes,omitempty"`
	DeepSleepMinutes  *int     `json:"deep_sleep_minutes,omitempty"`
	RemSleepMinutes   *int     `json:"rem_sleep_minutes,omitempty"`
	LightSleepMinutes *int     `json:"light_sleep_minutes,omitempty"`
	AwakeMinutes      *int     `json:"awake_minutes,omitempty"`
	Efficiency        *float64 `json:"efficiency,omitempty"`

	StepCount              *int     `json:"step_count,omitempty"`
	DistanceMeters         *float64 `json:"distance_meters,omitempty"`
	ActiveEnergyBurnedKcal *float64 `json:"active_energy_burned_kcal,omitempty"`
	BasalEnergyBurnedKcal  *float64 `json:"basal_energy_burned_kcal,omitempty"`
	FlightsClimbed         *int     `json:"flights_climbed,omitempty"`
	ExerciseMinutes        *int     `json:"exercise_minutes,omitempty"`
	StandHours             *int     `json:"stand_hours,omitempty"`
	MoveMinutes            *int     `json:"move_minutes,omitempty"`
	VO2Max                 *float64 `json:"vo2_max,omitempty"`
	FlightsDescended       *int     `json:"flights_descended,omitempty"`
	DistanceCyclingMeters  *float64 `json:"distance_cycling_meters,omitempty"`
	DistanceSwimmingMeters *float64 `json:"distance_swimming_meters,omitempty"`
	NikeFuelPoints         *int     `json:"nike_fuel_points,omitempty"`

	MgPerDL       *float64 `json:"mg_per_dl,omitempty"`
	GlucoseSource string   `json:"glucose_source,omitempty"`
	InsulinUnits  *float64 `json:"insulin_units,omitempty"`

	Kind         string   `json:"kind,omitempty"`
	Value        string   `json:"value,omitempty"`
	NumericValue *float64 `json:"numeric_value,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	PrivacyTier  string   `json:"privacy_tier,omitempty"`

	// Device-native passthrough fields (spec §6.2 second paragraph).
	// Present only when the record hasn't already been translated.
	Identifier string            `json:"identifier,omitempty"`
	Units      string            `json:"units,omitempty"`
	NativeData []nativeDataPoint `json:"data,omitempty"`
}

type nativeDataPoint struct {
	Qty    float64   `json:"qty"`
	Date   time.Time `json:"date"`
	Source string    `json:"source"`
}

type workoutRecord struct {
	WorkoutType     string     `json:"workout_type"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         time.Time  `json:"ended_at"`
	TotalEnergyKcal *float64   `json:"total_energy_kcal,omitempty"`
	DistanceMeters  *float64   `json:"distance_meters,omitempty"`
	AvgHeartRate    *int       `json:"avg_heart_rate,omitempty"`
	MaxHeartRate    *int       `json:"max_heart_rate,omitempty"`
	SourceDevice    string     `json:"source_device,omitempty"`
}
