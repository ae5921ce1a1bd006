package batch

import "github.com/Ladvien/self-sensored/internal/model"

func heartRateArgs(s model.HeartRateSample) []any {
	return []any{s.UserID, s.RecordedAt, s.BPM, s.RestingBPM, s.Context, s.Source, s.Min, s.Max, s.Avg, s.WalkingAvg, s.CreatedAt}
}

func bloodPressureArgs(s model.BloodPressureSample) []any {
	return []any{s.UserID, s.RecordedAt, s.Systolic, s.Diastolic, s.Pulse, s.Source}
}

func sleepArgs(s model.SleepSample) []any {
	return []any{s.UserID, s.SleepStart, s.SleepEnd, s.DurationMinutes, s.DeepSleepMinutes, s.RemSleepMinutes, s.LightSleepMinutes, s.AwakeMinutes, s.Efficiency, s.Source}
}

func activityArgs(s model.ActivitySample) []any {
	return []any{
		s.UserID, s.RecordedDate, s.StepCount, s.DistanceMeters,
		s.ActiveEnergyBurnedKcal, s.BasalEnergyBurnedKcal, s.FlightsClimbed,
		s.ExerciseMinutes, s.StandHours, s.Context, s.Source, s.MoveMinutes,
		s.AvgHeartRate, s.MaxHeartRate, s.VO2Max, s.FlightsDescended,
		s.DistanceCyclingMeters, s.DistanceSwimmingMeters, s.NikeFuelPoints,
	}
}

func workoutArgs(s model.WorkoutSample) []any {
	return []any{s.ID, s.UserID, s.WorkoutType, s.StartedAt, s.EndedAt, s.TotalEnergyKcal, s.DistanceMeters, s.AvgHeartRate, s.MaxHeartRate, s.Source}
}

func bloodGlucoseArgs(s model.BloodGlucoseSample) []any {
	return []any{s.ID, s.UserID, s.RecordedAt, s.MgPerDL, s.GlucoseSource, s.InsulinUnits, s.Context, s.Source}
}

func reproductiveHealthArgs(s model.ReproductiveHealthSample) []any {
	return []any{s.ID, s.UserID, s.RecordedAt, s.Kind_, s.Value, s.PrivacyTier, s.Source}
}

func symptomArgs(s model.SymptomSample) []any {
	return []any{s.UserID, s.RecordedAt, s.Kind_, s.Value, s.Unit, s.Source}
}
