// Package batch implements the BatchProcessor (C6): orchestrates
// Validator -> Deduplicator -> Chunker -> upsert across metric kinds,
// with bounded concurrency across kinds and a per-chunk retry loop
// (spec §4.6, "the hardest part").
package batch

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/apperr"
	"github.com/Ladvien/self-sensored/internal/chunk"
	"github.com/Ladvien/self-sensored/internal/dedup"
	"github.com/Ladvien/self-sensored/internal/metrics"
	"github.com/Ladvien/self-sensored/internal/model"
	"github.com/Ladvien/self-sensored/internal/validate"
)

// DB is the narrow sqlx surface the Processor needs, letting tests
// substitute an in-memory fake rather than standing up a database
// (the same dependency-inversion shape as auth.KeyStore).
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Payload is the already-classified, per-kind bucket set the
// IngestCoordinator hands off (spec §4.5: "transfers ownership of
// each bucket to the BatchProcessor").
type Payload struct {
	HeartRate          []model.HeartRateSample
	BloodPressure      []model.BloodPressureSample
	Sleep              []model.SleepSample
	Activity           []model.ActivitySample
	Workout            []model.WorkoutSample
	BloodGlucose       []model.BloodGlucoseSample
	ReproductiveHealth []model.ReproductiveHealthSample
	Symptom            []model.SymptomSample
}

// Result is the BatchProcessor's contract output (spec §4.6.1).
type Result struct {
	ProcessedCount   int
	FailedCount      int
	SkippedCount     int
	Errors           []model.ProcessingError
	DedupStats       map[model.MetricKind]dedup.Stats
	ProcessingTimeMs int64
	RetryAttempts    int
}

// Processor holds the shared resources every bucket task uses: the
// connection pool, the tunables, and the observability hooks.
type Processor struct {
	db            DB
	batchCfg      config.BatchConfig
	validationCfg config.ValidationConfig
	metrics       *metrics.Registry
	log           *logrus.Logger
}

func New(db DB, batchCfg config.BatchConfig, validationCfg config.ValidationConfig, reg *metrics.Registry, log *logrus.Logger) *Processor {
	return &Processor{db: db, batchCfg: batchCfg, validationCfg: validationCfg, metrics: reg, log: log}
}

type bucketOutcome struct {
	kind          model.MetricKind
	processed     int
	failed        int
	skipped       int
	errs          []model.ProcessingError
	dedupStats    dedup.Stats
	retryAttempts int
}

// ProcessBatch runs the full per-request pipeline for one user's
// typed payload. It never returns an error for partial failure —
// every failure mode surfaces in Result.Errors (spec §4.6.2 step 7).
func (p *Processor) ProcessBatch(ctx context.Context, userID uuid.UUID, payload Payload) (Result, error) {
	start := time.Now()

	sem := semaphore.NewWeighted(int64(maxInt(p.batchCfg.MaxConcurrentMetricTypes, 1)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var outcomes []bucketOutcome

	schedule := func(kind model.MetricKind, run func() bucketOutcome) {
		if !hasRows(kind, payload) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				outcomes = append(outcomes, bucketOutcome{kind: kind, errs: []model.ProcessingError{{Kind: kind, Reason: err.Error()}}})
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			outcome := run()
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}()
	}

	schedule(model.KindHeartRate, func() bucketOutcome { return p.runHeartRate(ctx, payload.HeartRate) })
	schedule(model.KindBloodPressure, func() bucketOutcome { return p.runBloodPressure(ctx, payload.BloodPressure) })
	schedule(model.KindSleep, func() bucketOutcome { return p.runSleep(ctx, payload.Sleep) })
	schedule(model.KindActivity, func() bucketOutcome { return p.runActivity(ctx, payload.Activity) })
	schedule(model.KindWorkout, func() bucketOutcome { return p.runWorkout(ctx, payload.Workout) })
	schedule(model.KindBloodGlucose, func() bucketOutcome { return p.runBloodGlucose(ctx, payload.BloodGlucose) })
	schedule(model.KindReproductiveHealth, func() bucketOutcome { return p.runReproductiveHealth(ctx, payload.ReproductiveHealth) })
	schedule(model.KindSymptom, func() bucketOutcome { return p.runSymptom(ctx, payload.Symptom) })

	wg.Wait()

	result := Result{DedupStats: make(map[model.MetricKind]dedup.Stats, len(outcomes))}
	for _, o := range outcomes {
		result.ProcessedCount += o.processed
		// SkippedCount folds into FailedCount too: a validation
		// rejection is still a failure to write that sample, and
		// callers reading FailedCount must see every one of them
		// (spec §8.1, §8.4.4's worked example). SkippedCount is kept
		// alongside it for callers that want the validation/db-failure
		// split.
		result.FailedCount += o.failed + o.skipped
		result.SkippedCount += o.skipped
		result.Errors = append(result.Errors, o.errs...)
		result.RetryAttempts += o.retryAttempts
		if o.dedupStats != (dedup.Stats{}) {
			result.DedupStats[o.kind] = o.dedupStats
		}
		if p.metrics != nil && o.skipped > 0 {
			p.metrics.SamplesFailed.WithLabelValues(string(o.kind)).Add(float64(o.skipped))
		}
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	if p.metrics != nil {
		p.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		p.metrics.RetryAttempts.Add(float64(result.RetryAttempts))
	}
	return result, nil
}

func hasRows(kind model.MetricKind, payload Payload) bool {
	switch kind {
	case model.KindHeartRate:
		return len(payload.HeartRate) > 0
	case model.KindBloodPressure:
		return len(payload.BloodPressure) > 0
	case model.KindSleep:
		return len(payload.Sleep) > 0
	case model.KindActivity:
		return len(payload.Activity) > 0
	case model.KindWorkout:
		return len(payload.Workout) > 0
	case model.KindBloodGlucose:
		return len(payload.BloodGlucose) > 0
	case model.KindReproductiveHealth:
		return len(payload.ReproductiveHealth) > 0
	case model.KindSymptom:
		return len(payload.Symptom) > 0
	default:
		return false
	}
}

// applyDedup runs the kind's Deduplicator over valid, unless intra-
// batch deduplication is disabled, in which case the bucket passes
// through untouched and the database's own conflict handling (see
// upsertSpec.lastWins in sql.go) becomes the only duplicate-key
// resolution left in the pipeline (spec §4.3 step 5).
func applyDedup[T any](enabled bool, valid []T, dedupFn func([]T) ([]T, dedup.Stats)) ([]T, dedup.Stats) {
	if !enabled {
		return valid, dedup.Stats{}
	}
	return dedupFn(valid)
}

func (p *Processor) recordDedup(kind model.MetricKind, stats dedup.Stats) {
	if p.metrics != nil && stats.DuplicatesRemoved > 0 {
		p.metrics.DuplicatesRemoved.WithLabelValues(string(kind)).Add(float64(stats.DuplicatesRemoved))
	}
}

func (p *Processor) runHeartRate(ctx context.Context, samples []model.HeartRateSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindHeartRate, samples, validate.HeartRate, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.HeartRate)
	p.recordDedup(model.KindHeartRate, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindHeartRate, deduped, heartRateArgs)
	return bucketOutcome{model.KindHeartRate, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runBloodPressure(ctx context.Context, samples []model.BloodPressureSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindBloodPressure, samples, validate.BloodPressure, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.BloodPressure)
	p.recordDedup(model.KindBloodPressure, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindBloodPressure, deduped, bloodPressureArgs)
	return bucketOutcome{model.KindBloodPressure, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runSleep(ctx context.Context, samples []model.SleepSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindSleep, samples, validate.Sleep, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.Sleep)
	p.recordDedup(model.KindSleep, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindSleep, deduped, sleepArgs)
	return bucketOutcome{model.KindSleep, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runActivity(ctx context.Context, samples []model.ActivitySample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindActivity, samples, validate.Activity, p.validationCfg)
	// activitySpec's GREATEST merge is not a last-wins dedup, so its
	// in-batch roll-up always runs regardless of the flag.
	deduped, stats := dedup.Activity(valid)
	p.recordDedup(model.KindActivity, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindActivity, deduped, activityArgs)
	return bucketOutcome{model.KindActivity, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runWorkout(ctx context.Context, samples []model.WorkoutSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindWorkout, samples, validate.Workout, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.Workout)
	p.recordDedup(model.KindWorkout, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindWorkout, deduped, workoutArgs)
	return bucketOutcome{model.KindWorkout, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runBloodGlucose(ctx context.Context, samples []model.BloodGlucoseSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindBloodGlucose, samples, validate.BloodGlucose, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.BloodGlucose)
	p.recordDedup(model.KindBloodGlucose, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindBloodGlucose, deduped, bloodGlucoseArgs)
	return bucketOutcome{model.KindBloodGlucose, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runReproductiveHealth(ctx context.Context, samples []model.ReproductiveHealthSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindReproductiveHealth, samples,
		func(s model.ReproductiveHealthSample, _ config.ValidationConfig) *validate.Result {
			return validate.ReproductiveHealth(s)
		}, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.ReproductiveHealth)
	p.recordDedup(model.KindReproductiveHealth, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindReproductiveHealth, deduped, reproductiveHealthArgs)
	return bucketOutcome{model.KindReproductiveHealth, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

func (p *Processor) runSymptom(ctx context.Context, samples []model.SymptomSample) bucketOutcome {
	valid, errs, skipped := validateBucket(model.KindSymptom, samples,
		func(s model.SymptomSample, _ config.ValidationConfig) *validate.Result {
			return validate.Symptom(s)
		}, p.validationCfg)
	deduped, stats := applyDedup(p.batchCfg.EnableIntraBatchDeduplication, valid, dedup.Symptom)
	p.recordDedup(model.KindSymptom, stats)
	processed, failed, chunkErrs, retries := processKind(ctx, p, model.KindSymptom, deduped, symptomArgs)
	return bucketOutcome{model.KindSymptom, processed, failed, skipped, append(errs, chunkErrs...), stats, retries}
}

// validateBucket applies a per-kind check sample-by-sample; a
// rejection drops only that sample (spec §4.6.4).
func validateBucket[T any](kind model.MetricKind, samples []T, validateFn func(T, config.ValidationConfig) *validate.Result, cfg config.ValidationConfig) (valid []T, errs []model.ProcessingError, skipped int) {
	valid = make([]T, 0, len(samples))
	for i, s := range samples {
		if r := validateFn(s, cfg); r != nil {
			idx := i
			errs = append(errs, model.ProcessingError{Kind: kind, Index: &idx, Reason: r.Reason})
			skipped++
			continue
		}
		valid = append(valid, s)
	}
	return
}

// processKind chunks a deduped bucket and executes one upsert
// statement per chunk, retrying transient failures (spec §4.6.2 steps
// 5.a-d, §4.6.5).
func processKind[T any](ctx context.Context, p *Processor, kind model.MetricKind, rows []T, argsFn func(T) []any) (processed, failed int, errs []model.ProcessingError, retryAttempts int) {
	if len(rows) == 0 {
		return
	}

	spec := specForKind(kind)
	chunkSize := p.batchCfg.ChunkSizeForKind(string(kind), kind.ColsPerRow())

	chunks, err := chunk.Split(rows, chunkSize, kind.ColsPerRow(), config.SafeParamLimit)
	if err != nil {
		// The Chunker invariant failed at construction time: a
		// configuration bug, not a data problem. Escalate in logs and
		// fail the whole bucket rather than risk an oversized
		// statement (spec §4.6.4 last bullet).
		p.log.WithFields(logrus.Fields{"kind": kind, "err": err}).Error("chunker invariant violated")
		return 0, len(rows), []model.ProcessingError{{Kind: kind, Reason: err.Error()}}, 0
	}

	for _, c := range chunks {
		query := spec.buildUpsert(len(c.Rows), p.batchCfg.EnableIntraBatchDeduplication)
		args := make([]any, 0, len(c.Rows)*len(spec.columns))
		for _, row := range c.Rows {
			args = append(args, argsFn(row)...)
		}

		var result sql.Result
		attempts, execErr := withRetry(ctx, p.batchCfg.MaxRetries, p.batchCfg.InitialBackoff.Duration, p.batchCfg.MaxBackoff.Duration, func() error {
			var e error
			result, e = p.db.ExecContext(ctx, query, args...)
			return wrapExecErr(e)
		})
		retryAttempts += attempts

		if execErr != nil {
			failed += len(c.Rows)
			idx := c.Index
			errs = append(errs, model.ProcessingError{Kind: kind, Index: &idx, Reason: execErr.Error()})
			if p.metrics != nil {
				p.metrics.ChunksFailed.WithLabelValues(string(kind)).Inc()
				p.metrics.SamplesFailed.WithLabelValues(string(kind)).Add(float64(len(c.Rows)))
			}
			continue
		}

		// processed counts what the database actually reports as
		// affected, never the input row count: a DO NOTHING conflict
		// (or a byte-identical replay hitting DO UPDATE SET with
		// unchanged values) affects zero rows even though len(c.Rows)
		// rows were sent (spec §4.6.2 step 5.d, §8.2's idempotence
		// law).
		n, _ := result.RowsAffected()
		processed += int(n)
		if p.metrics != nil {
			p.metrics.SamplesIngested.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
	return
}

func wrapExecErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57", "40": // connection, resources, operator intervention, serialization
			return errors.Join(apperr.ErrTransient, err)
		}
	}
	return errors.Join(apperr.ErrChunk, err)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
