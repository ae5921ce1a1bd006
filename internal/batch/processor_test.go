package batch

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/model"
	"github.com/Ladvien/self-sensored/internal/validate"
)

var fixedUUID = uuid.New()

// fakeExecDB backs the batch.DB interface without a live database: it
// records every statement issued and returns a scripted affected-row
// count, so tests can assert on RowsAffected-driven behavior directly.
type fakeExecDB struct {
	rowsAffected int64
	queries      []string
}

func (f *fakeExecDB) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	return sql.Result(fakeResult{rowsAffected: f.rowsAffected}), nil
}

type fakeResult struct {
	rowsAffected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

func testBatchCfg() config.BatchConfig {
	cfg := config.DefaultConfig().Batch
	cfg.HeartRateChunkSize = 100
	return cfg
}

func TestProcessKind_ProcessedCountTracksRowsAffectedNotInputCount(t *testing.T) {
	// A replay that hits DO NOTHING (or an upsert with no real change)
	// reports zero affected rows even though 2 input rows were sent;
	// processed_count must follow the database, not len(rows).
	db := &fakeExecDB{rowsAffected: 0}
	p := &Processor{db: db, batchCfg: testBatchCfg(), log: logrus.New()}

	rows := []model.HeartRateSample{{BPM: 70}, {BPM: 80}}
	processed, failed, errs, _ := processKind(context.Background(), p, model.KindHeartRate, rows, heartRateArgs)

	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, failed)
	assert.Empty(t, errs)
}

func TestProcessKind_ProcessedCountMatchesReportedAffectedRows(t *testing.T) {
	db := &fakeExecDB{rowsAffected: 2}
	p := &Processor{db: db, batchCfg: testBatchCfg(), log: logrus.New()}

	rows := []model.HeartRateSample{{BPM: 70}, {BPM: 80}}
	processed, _, _, _ := processKind(context.Background(), p, model.KindHeartRate, rows, heartRateArgs)

	assert.Equal(t, 2, processed)
}

func TestProcessKind_DedupDisabled_RendersDoNothingUpsert(t *testing.T) {
	db := &fakeExecDB{rowsAffected: 1}
	cfg := testBatchCfg()
	cfg.EnableIntraBatchDeduplication = false
	p := &Processor{db: db, batchCfg: cfg, log: logrus.New()}

	rows := []model.HeartRateSample{{BPM: 70}}
	_, _, _, _ = processKind(context.Background(), p, model.KindHeartRate, rows, heartRateArgs)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "DO NOTHING")
	assert.False(t, strings.Contains(db.queries[0], "DO UPDATE SET"))
}

func TestProcessKind_DedupEnabled_RendersDoUpdateUpsert(t *testing.T) {
	db := &fakeExecDB{rowsAffected: 1}
	p := &Processor{db: db, batchCfg: testBatchCfg(), log: logrus.New()}

	rows := []model.HeartRateSample{{BPM: 70}}
	_, _, _, _ = processKind(context.Background(), p, model.KindHeartRate, rows, heartRateArgs)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "DO UPDATE SET")
}

func TestProcessBatch_SkippedValidationSamplesCountTowardFailedCount(t *testing.T) {
	// spec's worked example: 100 heart-rate samples with 3 invalid bpm
	// values must report processed_count=97, failed_count=3.
	db := &fakeExecDB{rowsAffected: 97}
	p := New(db, testBatchCfg(), config.DefaultConfig().Validation, nil, logrus.New())

	samples := make([]model.HeartRateSample, 100)
	now := time.Now()
	for i := range samples {
		samples[i] = model.HeartRateSample{UserID: fixedUUID, RecordedAt: now.Add(time.Duration(i) * time.Second), BPM: 70}
	}
	samples[10].BPM = 500
	samples[20].BPM = 500
	samples[30].BPM = 500

	result, err := p.ProcessBatch(context.Background(), fixedUUID, Payload{HeartRate: samples})

	require.NoError(t, err)
	assert.Equal(t, 97, result.ProcessedCount)
	assert.Equal(t, 3, result.FailedCount)
	assert.Equal(t, 3, result.SkippedCount)
}

func TestValidateBucket_DropsOnlyViolatingSample(t *testing.T) {
	cfg := config.DefaultConfig().Validation
	samples := []model.HeartRateSample{
		{BPM: 70},
		{BPM: 500},
		{BPM: 80},
	}

	valid, errs, skipped := validateBucket(model.KindHeartRate, samples, validate.HeartRate, cfg)

	assert.Len(t, valid, 2)
	assert.Equal(t, 1, skipped)
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, *errs[0].Index)
}

func TestHasRows_EmptyPayloadReportsNoBucket(t *testing.T) {
	assert.False(t, hasRows(model.KindHeartRate, Payload{}))
	assert.True(t, hasRows(model.KindHeartRate, Payload{HeartRate: []model.HeartRateSample{{}}}))
}
