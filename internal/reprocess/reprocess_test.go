package reprocess

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
)

type fakeRawStore struct {
	records      []model.RawIngestion
	listErr      error
	updates      map[uuid.UUID]model.ProcessingStatus
	updateErrors map[uuid.UUID][]model.ProcessingError
}

func newFakeRawStore(records ...model.RawIngestion) *fakeRawStore {
	return &fakeRawStore{
		records:      records,
		updates:      make(map[uuid.UUID]model.ProcessingStatus),
		updateErrors: make(map[uuid.UUID][]model.ProcessingError),
	}
}

func (f *fakeRawStore) ListRecoverable(ctx context.Context, limit int) ([]model.RawIngestion, error) {
	return f.records, f.listErr
}

func (f *fakeRawStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, errs []model.ProcessingError) error {
	f.updates[id] = status
	f.updateErrors[id] = errs
	return nil
}

type fakeProcessor struct {
	result batch.Result
	err    error
}

func (f *fakeProcessor) ProcessBatch(ctx context.Context, userID uuid.UUID, payload batch.Payload) (batch.Result, error) {
	return f.result, f.err
}

func newTestReprocessor(raw RawStore, proc BatchProcessor) *Reprocessor {
	return NewReprocessor(raw, mapping.NewTable(), proc, logrus.New(), 100)
}

func TestRun_NoRecordsReturnsEmptySummary(t *testing.T) {
	raw := newFakeRawStore()
	r := newTestReprocessor(raw, &fakeProcessor{})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestRun_SuccessfulReplayMarksProcessed(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	payload := []byte(`{"data":{"metrics":[{"type":"HeartRate","recorded_at":"2024-01-15T12:00:00Z","heart_rate":72}]}}`)
	rec := model.RawIngestion{
		ID: id, UserID: userID, Payload: payload, Status: model.StatusError,
		ProcessingErrors: []model.ProcessingError{{Reason: "too many arguments for query"}},
	}
	raw := newFakeRawStore(rec)
	proc := &fakeProcessor{result: batch.Result{ProcessedCount: 1}}
	r := newTestReprocessor(raw, proc)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, model.StatusProcessed, raw.updates[id])
	assert.Empty(t, raw.updateErrors[id])
}

func TestRun_RemainingErrorsKeepStatusError(t *testing.T) {
	id := uuid.New()
	rec := model.RawIngestion{
		ID: id, UserID: uuid.New(),
		Payload:          []byte(`{"data":{"metrics":[{"type":"HeartRate","recorded_at":"2024-01-15T12:00:00Z","heart_rate":72}]}}`),
		Status:           model.StatusError,
		ProcessingErrors: []model.ProcessingError{{Reason: "exceeding safe limit"}},
	}
	raw := newFakeRawStore(rec)
	proc := &fakeProcessor{result: batch.Result{
		ProcessedCount: 0,
		Errors:         []model.ProcessingError{{Reason: "still broken"}},
	}}
	r := newTestReprocessor(raw, proc)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, model.StatusError, raw.updates[id])
}

func TestRun_UnmatchedSignatureIsSkipped(t *testing.T) {
	id := uuid.New()
	rec := model.RawIngestion{
		ID: id, UserID: uuid.New(),
		Payload:          []byte(`{"data":{"metrics":[]}}`),
		Status:           model.StatusError,
		ProcessingErrors: []model.ProcessingError{{Reason: "unrelated validation failure"}},
	}
	raw := newFakeRawStore(rec)
	r := newTestReprocessor(raw, &fakeProcessor{})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
}

func TestRun_MalformedPayloadCountsAsFailed(t *testing.T) {
	id := uuid.New()
	rec := model.RawIngestion{
		ID: id, UserID: uuid.New(),
		Payload:          []byte(`{not json`),
		Status:           model.StatusError,
		ProcessingErrors: []model.ProcessingError{{Reason: "parameter limit exceeded"}},
	}
	raw := newFakeRawStore(rec)
	r := newTestReprocessor(raw, &fakeProcessor{})

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, raw.updates)
}

func TestRun_ListErrorPropagates(t *testing.T) {
	raw := &fakeRawStore{listErr: context.DeadlineExceeded}
	r := newTestReprocessor(raw, &fakeProcessor{})

	_, err := r.Run(context.Background())
	assert.Error(t, err)
}
