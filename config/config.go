package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process-wide immutable value constructed at startup
// (C1). LoadFromEnv overrides a subset of the tunables from
// environment variables; the others keep their default or config-file
// values.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Batch      BatchConfig      `json:"batch"`
	Validation ValidationConfig `json:"validation"`
	Streaming  StreamingConfig  `json:"streaming"`
	Auth       AuthConfig       `json:"auth"`
	Log        LogConfig        `json:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   string   `json:"port"`
	ReadTimeout            Duration `json:"read_timeout"`
	WriteTimeout           Duration `json:"write_timeout"`
	IdleTimeout            Duration `json:"idle_timeout"`
	RequestTimeout         Duration `json:"request_timeout"`
	ConnectionTimeout      Duration `json:"connection_timeout"`
	KeepAliveTimeout       Duration `json:"keep_alive_timeout"`
	BackgroundJobThreshold int      `json:"background_job_threshold"`
}

// DatabaseConfig mirrors original_source/src/db/database.rs's pool
// sizing knobs exactly (env var names preserved).
type DatabaseConfig struct {
	URL             string   `json:"-"`
	MaxConnections  int      `json:"max_connections"`
	MinConnections  int      `json:"min_connections"`
	ConnectTimeout  Duration `json:"connect_timeout"`
	IdleTimeout     Duration `json:"idle_timeout"`
	MaxLifetime     Duration `json:"max_lifetime"`
	AcquireTimeout  Duration `json:"acquire_timeout"`
}

// PostgreSQL's absolute per-statement bind-parameter ceiling, and the
// 80%-of-max safety margin the Chunker budgets against (spec §4.1,
// Glossary "SAFE").
const (
	PostgresMaxParams = 65535
	SafeParamLimit    = 52428 // 0.8 * PostgresMaxParams
)

// BatchConfig holds the chunk sizes, retry policy, and parallelism
// tunables for the BatchProcessor (C6). Defaults and env var names are
// ported from original_source/src/config/batch_config.rs, with the
// activity chunk size/column-count updated to match spec.md's
// redesigned 19-column roll-up (see DESIGN.md).
type BatchConfig struct {
	MaxRetries                   int      `json:"max_retries"`
	InitialBackoff                Duration `json:"initial_backoff"`
	MaxBackoff                    Duration `json:"max_backoff"`
	EnableParallelProcessing      bool     `json:"enable_parallel_processing"`
	MaxConcurrentMetricTypes      int      `json:"max_concurrent_metric_types"`
	MemoryLimitMB                 float64  `json:"memory_limit_mb"`
	HeartRateChunkSize            int      `json:"heart_rate_chunk_size"`
	BloodPressureChunkSize        int      `json:"blood_pressure_chunk_size"`
	SleepChunkSize                int      `json:"sleep_chunk_size"`
	ActivityChunkSize              int      `json:"activity_chunk_size"`
	WorkoutChunkSize               int      `json:"workout_chunk_size"`
	BloodGlucoseChunkSize          int      `json:"blood_glucose_chunk_size"`
	EnableProgressTracking         bool     `json:"enable_progress_tracking"`
	EnableIntraBatchDeduplication  bool     `json:"enable_intra_batch_deduplication"`
	EnableDualWriteActivityMetrics bool     `json:"enable_dual_write_activity_metrics"`
}

// ChunkSizeForKind returns the configured chunk size for a metric kind
// string, falling back to floor(SAFE / cols_per_row) for kinds without
// an explicit default (spec §4.1).
func (b BatchConfig) ChunkSizeForKind(kind string, colsPerRow int) int {
	switch kind {
	case "heart_rate":
		return b.HeartRateChunkSize
	case "blood_pressure":
		return b.BloodPressureChunkSize
	case "sleep":
		return b.SleepChunkSize
	case "activity":
		return b.ActivityChunkSize
	case "workout":
		return b.WorkoutChunkSize
	case "blood_glucose":
		return b.BloodGlucoseChunkSize
	default:
		if colsPerRow <= 0 {
			colsPerRow = 1
		}
		return SafeParamLimit / colsPerRow
	}
}

// Validate checks every configured chunk size against the parameter
// budget. A violation is a fatal startup failure naming the metric and
// the resulting parameter count (spec §4.1, §8.4 scenario 1).
func (b BatchConfig) Validate() error {
	checks := []struct {
		name       string
		chunkSize  int
		colsPerRow int
	}{
		{"heart_rate", b.HeartRateChunkSize, 11},
		{"blood_pressure", b.BloodPressureChunkSize, 6},
		{"sleep", b.SleepChunkSize, 10},
		{"activity", b.ActivityChunkSize, 19},
		{"workout", b.WorkoutChunkSize, 10},
		{"blood_glucose", b.BloodGlucoseChunkSize, 8},
	}

	for _, c := range checks {
		total := c.chunkSize * c.colsPerRow
		if total > SafeParamLimit {
			return fmt.Errorf(
				"%s chunk size %d would result in %d parameters, exceeding safe limit of %d",
				c.name, c.chunkSize, total, SafeParamLimit,
			)
		}
	}
	return nil
}

// ValidationConfig contains per-metric physiological validity ranges
// (C2), ported from original_source/src/config/validation_config.rs.
type ValidationConfig struct {
	HeartRateMin   int `json:"heart_rate_min"`
	HeartRateMax   int `json:"heart_rate_max"`

	SystolicMin  int `json:"systolic_min"`
	SystolicMax  int `json:"systolic_max"`
	DiastolicMin int `json:"diastolic_min"`
	DiastolicMax int `json:"diastolic_max"`

	SleepEfficiencyMin           float64 `json:"sleep_efficiency_min"`
	SleepEfficiencyMax           float64 `json:"sleep_efficiency_max"`
	SleepDurationToleranceMinutes int    `json:"sleep_duration_tolerance_minutes"`

	StepsMin      int     `json:"steps_min"`
	StepsMax      int     `json:"steps_max"`
	DistanceMaxKm float64 `json:"distance_max_km"`
	CaloriesMax   float64 `json:"calories_max"`

	LatitudeMin  float64 `json:"latitude_min"`
	LatitudeMax  float64 `json:"latitude_max"`
	LongitudeMin float64 `json:"longitude_min"`
	LongitudeMax float64 `json:"longitude_max"`

	WorkoutHeartRateMin      int `json:"workout_heart_rate_min"`
	WorkoutHeartRateMax      int `json:"workout_heart_rate_max"`
	WorkoutMaxDurationHours  int `json:"workout_max_duration_hours"`

	BloodGlucoseMin int     `json:"blood_glucose_min"`
	BloodGlucoseMax int     `json:"blood_glucose_max"`
	InsulinMaxUnits float64 `json:"insulin_max_units"`

	CyclingSpeedMaxKmh float64 `json:"cycling_speed_max_kmh"`
	CyclingPowerMaxW   int     `json:"cycling_power_max_w"`
	CyclingCadenceMax  int     `json:"cycling_cadence_max"`

	DepthMaxMeters         float64 `json:"depth_max_meters"`
	DivingDurationMaxSecs  int     `json:"diving_duration_max_secs"`
}

// Validate checks that every min < max range makes sense (spec §4.1).
func (v ValidationConfig) Validate() error {
	type rng struct {
		name     string
		min, max float64
	}
	ranges := []rng{
		{"heart_rate", float64(v.HeartRateMin), float64(v.HeartRateMax)},
		{"systolic", float64(v.SystolicMin), float64(v.SystolicMax)},
		{"diastolic", float64(v.DiastolicMin), float64(v.DiastolicMax)},
		{"sleep_efficiency", v.SleepEfficiencyMin, v.SleepEfficiencyMax},
		{"steps", float64(v.StepsMin), float64(v.StepsMax)},
		{"latitude", v.LatitudeMin, v.LatitudeMax},
		{"longitude", v.LongitudeMin, v.LongitudeMax},
		{"workout_heart_rate", float64(v.WorkoutHeartRateMin), float64(v.WorkoutHeartRateMax)},
	}
	for _, r := range ranges {
		if r.min >= r.max {
			return fmt.Errorf("%s_min must be less than %s_max", r.name, r.name)
		}
	}
	return nil
}

// StreamingConfig bounds the StreamingParser (C7).
type StreamingConfig struct {
	MaxPayloadBytes int64 `json:"max_payload_bytes"`
	ChunkReadBytes  int64 `json:"chunk_read_bytes"`
}

// AuthConfig holds the AuthGate's (C8) defaults and the distributed
// rate-limit backend selection (resolves spec §9 Open Question #2).
type AuthConfig struct {
	DefaultRateLimitPerHour int    `json:"default_rate_limit_per_hour"`
	RateLimitBackend        string `json:"rate_limit_backend"` // "memory" | "redis"
	RedisAddr               string `json:"-"`
	ReprocessJWTSecret      string `json:"-"`
	ArgonTimeCost           uint32 `json:"argon_time_cost"`
	ArgonMemoryKiB          uint32 `json:"argon_memory_kib"`
	ArgonThreads            uint8  `json:"argon_threads"`
	AuditLoggingEnabled     bool   `json:"audit_logging_enabled"`
}

// LogConfig configures internal/applog.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a configuration with the documented defaults
// from spec §4.1 / original_source's batch_config.rs /
// validation_config.rs / database.rs.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   ":8080",
			ReadTimeout:            Duration{30 * time.Second},
			WriteTimeout:           Duration{30 * time.Second},
			IdleTimeout:            Duration{120 * time.Second},
			RequestTimeout:         Duration{60 * time.Second},
			ConnectionTimeout:      Duration{30 * time.Second},
			KeepAliveTimeout:       Duration{15 * time.Second},
			BackgroundJobThreshold: 10000,
		},
		Database: DatabaseConfig{
			MaxConnections: 20,
			MinConnections: 5,
			ConnectTimeout: Duration{10 * time.Second},
			IdleTimeout:    Duration{300 * time.Second},
			MaxLifetime:    Duration{3600 * time.Second},
			AcquireTimeout: Duration{10 * time.Second},
		},
		Batch: BatchConfig{
			MaxRetries:                     3,
			InitialBackoff:                 Duration{100 * time.Millisecond},
			MaxBackoff:                     Duration{5000 * time.Millisecond},
			EnableParallelProcessing:       true,
			MaxConcurrentMetricTypes:       8,
			MemoryLimitMB:                  500.0,
			HeartRateChunkSize:             4766, // floor(SafeParamLimit / 11)
			BloodPressureChunkSize:         8000,
			SleepChunkSize:                 5242, // floor(SafeParamLimit / 10)
			ActivityChunkSize:              2700,
			WorkoutChunkSize:               5000,
			BloodGlucoseChunkSize:          6500,
			EnableProgressTracking:         true,
			EnableIntraBatchDeduplication:  true,
			EnableDualWriteActivityMetrics: false,
		},
		Validation: ValidationConfig{
			HeartRateMin: 15, HeartRateMax: 300,
			SystolicMin: 50, SystolicMax: 250,
			DiastolicMin: 30, DiastolicMax: 150,
			SleepEfficiencyMin: 0.0, SleepEfficiencyMax: 100.0,
			SleepDurationToleranceMinutes: 60,
			StepsMin: 0, StepsMax: 200000,
			DistanceMaxKm: 500.0,
			CaloriesMax:   20000.0,
			LatitudeMin:   -90.0, LatitudeMax: 90.0,
			LongitudeMin: -180.0, LongitudeMax: 180.0,
			WorkoutHeartRateMin: 15, WorkoutHeartRateMax: 300,
			WorkoutMaxDurationHours: 24,
			BloodGlucoseMin:         30,
			BloodGlucoseMax:         600,
			InsulinMaxUnits:         100,
			CyclingSpeedMaxKmh:      100,
			CyclingPowerMaxW:        2000,
			CyclingCadenceMax:       200,
			DepthMaxMeters:          1000,
			DivingDurationMaxSecs:   86400,
		},
		Streaming: StreamingConfig{
			MaxPayloadBytes: 200 * 1024 * 1024,
			ChunkReadBytes:  1024 * 1024,
		},
		Auth: AuthConfig{
			DefaultRateLimitPerHour: 100,
			RateLimitBackend:        "memory",
			ArgonTimeCost:           1,
			ArgonMemoryKiB:          64 * 1024,
			ArgonThreads:            4,
			AuditLoggingEnabled:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a JSON file, starting from
// defaults so unspecified fields keep their documented values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables,
// following the exact names used by original_source's
// batch_config.rs/validation_config.rs/database.rs. Parse failures
// fall back to defaults silently; the caller is responsible for
// calling Validate afterward (range-invalid values fail startup).
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	intEnv("REQUEST_TIMEOUT_SECONDS", func(n int) { cfg.Server.RequestTimeout = Duration{time.Duration(n) * time.Second} })
	intEnv("BACKGROUND_JOB_THRESHOLD", func(n int) { cfg.Server.BackgroundJobThreshold = n })

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	intEnv("DATABASE_MAX_CONNECTIONS", func(n int) { cfg.Database.MaxConnections = n })
	intEnv("DATABASE_MIN_CONNECTIONS", func(n int) { cfg.Database.MinConnections = n })
	intEnv("DATABASE_CONNECT_TIMEOUT", func(n int) { cfg.Database.ConnectTimeout = Duration{time.Duration(n) * time.Second} })
	intEnv("DATABASE_IDLE_TIMEOUT", func(n int) { cfg.Database.IdleTimeout = Duration{time.Duration(n) * time.Second} })
	intEnv("DATABASE_MAX_LIFETIME", func(n int) { cfg.Database.MaxLifetime = Duration{time.Duration(n) * time.Second} })

	intEnv("BATCH_MAX_RETRIES", func(n int) { cfg.Batch.MaxRetries = n })
	intEnv("BATCH_INITIAL_BACKOFF_MS", func(n int) { cfg.Batch.InitialBackoff = Duration{time.Duration(n) * time.Millisecond} })
	intEnv("BATCH_MAX_BACKOFF_MS", func(n int) { cfg.Batch.MaxBackoff = Duration{time.Duration(n) * time.Millisecond} })
	boolEnv("BATCH_ENABLE_PARALLEL", func(b bool) { cfg.Batch.EnableParallelProcessing = b })
	floatEnv("BATCH_MEMORY_LIMIT_MB", func(f float64) { cfg.Batch.MemoryLimitMB = f })
	intEnv("BATCH_HEART_RATE_CHUNK_SIZE", func(n int) { cfg.Batch.HeartRateChunkSize = n })
	intEnv("BATCH_BLOOD_PRESSURE_CHUNK_SIZE", func(n int) { cfg.Batch.BloodPressureChunkSize = n })
	intEnv("BATCH_SLEEP_CHUNK_SIZE", func(n int) { cfg.Batch.SleepChunkSize = n })
	intEnv("BATCH_ACTIVITY_CHUNK_SIZE", func(n int) { cfg.Batch.ActivityChunkSize = n })
	intEnv("BATCH_WORKOUT_CHUNK_SIZE", func(n int) { cfg.Batch.WorkoutChunkSize = n })
	intEnv("BATCH_BLOOD_GLUCOSE_CHUNK_SIZE", func(n int) { cfg.Batch.BloodGlucoseChunkSize = n })
	boolEnv("BATCH_ENABLE_PROGRESS_TRACKING", func(b bool) { cfg.Batch.EnableProgressTracking = b })
	boolEnv("BATCH_ENABLE_DEDUPLICATION", func(b bool) { cfg.Batch.EnableIntraBatchDeduplication = b })
	boolEnv("DUAL_WRITE_ACTIVITY_METRICS", func(b bool) { cfg.Batch.EnableDualWriteActivityMetrics = b })
	intEnv("BATCH_MAX_CONCURRENT_METRIC_TYPES", func(n int) { cfg.Batch.MaxConcurrentMetricTypes = n })

	intEnv("VALIDATION_HEART_RATE_MIN", func(n int) { cfg.Validation.HeartRateMin = n })
	intEnv("VALIDATION_HEART_RATE_MAX", func(n int) { cfg.Validation.HeartRateMax = n })
	intEnv("VALIDATION_SYSTOLIC_MIN", func(n int) { cfg.Validation.SystolicMin = n })
	intEnv("VALIDATION_SYSTOLIC_MAX", func(n int) { cfg.Validation.SystolicMax = n })
	intEnv("VALIDATION_DIASTOLIC_MIN", func(n int) { cfg.Validation.DiastolicMin = n })
	intEnv("VALIDATION_DIASTOLIC_MAX", func(n int) { cfg.Validation.DiastolicMax = n })
	floatEnv("VALIDATION_SLEEP_EFFICIENCY_MIN", func(f float64) { cfg.Validation.SleepEfficiencyMin = f })
	floatEnv("VALIDATION_SLEEP_EFFICIENCY_MAX", func(f float64) { cfg.Validation.SleepEfficiencyMax = f })
	intEnv("VALIDATION_SLEEP_DURATION_TOLERANCE_MINUTES", func(n int) { cfg.Validation.SleepDurationToleranceMinutes = n })
	intEnv("VALIDATION_STEPS_MIN", func(n int) { cfg.Validation.StepsMin = n })
	intEnv("VALIDATION_STEPS_MAX", func(n int) { cfg.Validation.StepsMax = n })
	floatEnv("VALIDATION_DISTANCE_MAX_KM", func(f float64) { cfg.Validation.DistanceMaxKm = f })
	floatEnv("VALIDATION_CALORIES_MAX", func(f float64) { cfg.Validation.CaloriesMax = f })
	floatEnv("VALIDATION_LATITUDE_MIN", func(f float64) { cfg.Validation.LatitudeMin = f })
	floatEnv("VALIDATION_LATITUDE_MAX", func(f float64) { cfg.Validation.LatitudeMax = f })
	floatEnv("VALIDATION_LONGITUDE_MIN", func(f float64) { cfg.Validation.LongitudeMin = f })
	floatEnv("VALIDATION_LONGITUDE_MAX", func(f float64) { cfg.Validation.LongitudeMax = f })
	intEnv("VALIDATION_WORKOUT_HEART_RATE_MIN", func(n int) { cfg.Validation.WorkoutHeartRateMin = n })
	intEnv("VALIDATION_WORKOUT_HEART_RATE_MAX", func(n int) { cfg.Validation.WorkoutHeartRateMax = n })
	intEnv("VALIDATION_WORKOUT_MAX_DURATION_HOURS", func(n int) { cfg.Validation.WorkoutMaxDurationHours = n })

	intEnv("STREAMING_MAX_PAYLOAD_BYTES", func(n int) { cfg.Streaming.MaxPayloadBytes = int64(n) })
	intEnv("STREAMING_CHUNK_READ_BYTES", func(n int) { cfg.Streaming.ChunkReadBytes = int64(n) })

	intEnv("AUTH_DEFAULT_RATE_LIMIT_PER_HOUR", func(n int) { cfg.Auth.DefaultRateLimitPerHour = n })
	if v := os.Getenv("RATE_LIMIT_BACKEND"); v != "" {
		cfg.Auth.RateLimitBackend = v
	}
	cfg.Auth.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.Auth.ReprocessJWTSecret = os.Getenv("REPROCESS_JWT_SECRET")
	boolEnv("AUDIT_LOGGING_ENABLED", func(b bool) { cfg.Auth.AuditLoggingEnabled = b })

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	return cfg
}

func intEnv(name string, set func(int)) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			set(n)
		}
	}
}

func floatEnv(name string, set func(float64)) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			set(f)
		}
	}
}

func boolEnv(name string, set func(bool)) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			set(b)
		}
	}
}

// SaveToFile saves configuration to a JSON file.
func (c *Config) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return nil
}

// Validate checks the whole configuration is internally consistent.
// Any violation is a fatal startup failure (spec §4.1).
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.BackgroundJobThreshold <= 0 {
		return fmt.Errorf("background job threshold must be positive")
	}
	if c.Database.MinConnections <= 0 || c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("database max_connections must be >= min_connections, both positive")
	}
	if err := c.Batch.Validate(); err != nil {
		return err
	}
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	if c.Streaming.MaxPayloadBytes <= 0 {
		return fmt.Errorf("streaming max payload bytes must be positive")
	}
	if c.Auth.RateLimitBackend != "memory" && c.Auth.RateLimitBackend != "redis" {
		return fmt.Errorf("rate_limit_backend must be 'memory' or 'redis', got %q", c.Auth.RateLimitBackend)
	}
	if c.Auth.RateLimitBackend == "redis" && c.Auth.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set when rate_limit_backend is 'redis'")
	}
	return nil
}

// ConfigManager handles configuration loading and hot-reloading.
type ConfigManager struct {
	config   *Config
	filename string
	watchers []func(*Config)
}

// NewConfigManager creates a new configuration manager. When filename
// names an existing file it takes precedence; otherwise environment
// variables (and their documented defaults) are used.
func NewConfigManager(filename string) (*ConfigManager, error) {
	var cfg *Config
	var err error

	if filename != "" && fileExists(filename) {
		cfg, err = LoadFromFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	} else {
		cfg = LoadFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &ConfigManager{
		config:   cfg,
		filename: filename,
		watchers: make([]func(*Config), 0),
	}, nil
}

// GetConfig returns the current configuration.
func (cm *ConfigManager) GetConfig() *Config {
	return cm.config
}

// AddWatcher adds a function to be called when configuration changes.
func (cm *ConfigManager) AddWatcher(fn func(*Config)) {
	cm.watchers = append(cm.watchers, fn)
}

// Reload reloads the configuration from file and notifies watchers.
func (cm *ConfigManager) Reload() error {
	if cm.filename == "" || !fileExists(cm.filename) {
		return fmt.Errorf("no config file to reload")
	}

	newConfig, err := LoadFromFile(cm.filename)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = newConfig
	for _, watcher := range cm.watchers {
		watcher(newConfig)
	}

	return nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
