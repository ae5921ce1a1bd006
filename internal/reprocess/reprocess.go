// Package reprocess implements the Reprocessor (C10): a sweep over
// raw_ingestions rows stuck in status=error, replaying each through
// the BatchProcessor, grounded on
// original_source/src/bin/reprocess_failed.rs's query/replay/
// status-update/aggregate-logging sequence.
package reprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Ladvien/self-sensored/internal/batch"
	"github.com/Ladvien/self-sensored/internal/ingest"
	"github.com/Ladvien/self-sensored/internal/mapping"
	"github.com/Ladvien/self-sensored/internal/model"
)

// RawStore is the narrow surface Reprocessor needs from internal/rawstore.
type RawStore interface {
	ListRecoverable(ctx context.Context, limit int) ([]model.RawIngestion, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, processingErrors []model.ProcessingError) error
}

// BatchProcessor is the narrow surface Reprocessor needs from internal/batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, userID uuid.UUID, payload batch.Payload) (batch.Result, error)
}

// Summary is the aggregate result of one Run, logged the way
// reprocess_failed.rs logs its final counts.
type Summary struct {
	Scanned   int
	Processed int
	Failed    int
	Skipped   int
}

// Reprocessor replays raw ingestions that previously failed.
type Reprocessor struct {
	raw       RawStore
	mapping   *mapping.Table
	processor BatchProcessor
	log       *logrus.Logger
	limit     int
}

// NewReprocessor builds a Reprocessor. limit bounds how many error-status
// rows are pulled per Run (spec.md §6.5: the reprocess-failed binary runs
// to completion over the current backlog, not continuously).
func NewReprocessor(raw RawStore, table *mapping.Table, processor BatchProcessor, log *logrus.Logger, limit int) *Reprocessor {
	return &Reprocessor{raw: raw, mapping: table, processor: processor, log: log, limit: limit}
}

// Run scans raw_ingestions for status=error rows and replays each
// through the BatchProcessor, mirroring reprocess_failed.rs's loop:
// parse -> process -> update status -> tally.
func (r *Reprocessor) Run(ctx context.Context) (Summary, error) {
	records, err := r.raw.ListRecoverable(ctx, r.limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list recoverable raw ingestions: %w", err)
	}

	summary := Summary{Scanned: len(records)}
	if len(records) == 0 {
		r.log.Info("no failed records found to reprocess")
		return summary, nil
	}
	r.log.WithField("count", len(records)).Info("found failed records to reprocess")

	for _, rec := range records {
		entry := r.log.WithField("raw_id", rec.ID)

		if !signatureMatches(rec.ProcessingErrors) {
			entry.Debug("skipping record whose errors don't match the reprocessable signature")
			summary.Skipped++
			continue
		}

		payload, parseErrs, err := ingest.ParseEnvelope(rec.UserID, rec.Payload, r.mapping)
		if err != nil {
			entry.WithError(err).Error("failed to parse raw payload")
			summary.Failed++
			continue
		}

		result, err := r.processor.ProcessBatch(ctx, rec.UserID, payload)
		if err != nil {
			entry.WithError(err).Error("reprocessing batch failed")
			summary.Failed++
			continue
		}
		result.Errors = append(result.Errors, parseErrs...)

		if len(result.Errors) == 0 {
			if uerr := r.raw.UpdateStatus(ctx, rec.ID, model.StatusProcessed, nil); uerr != nil {
				entry.WithError(uerr).Error("failed to mark record processed")
			}
			entry.WithField("processed_count", result.ProcessedCount).Info("successfully reprocessed")
			summary.Processed++
		} else {
			if uerr := r.raw.UpdateStatus(ctx, rec.ID, model.StatusError, result.Errors); uerr != nil {
				entry.WithError(uerr).Error("failed to update processing errors")
			}
			entry.WithField("error_count", len(result.Errors)).Warn("reprocessed with remaining errors")
			summary.Failed++
		}
	}

	r.log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("reprocessing complete")
	return summary, nil
}

// signatureMatches narrows the sweep to the failure modes reprocessing
// can actually fix, the way reprocess_failed.rs filters on
// parameter-limit error text. A record with no recorded errors is
// included since its failure reason isn't known.
func signatureMatches(errs []model.ProcessingError) bool {
	if len(errs) == 0 {
		return true
	}
	for _, e := range errs {
		reason := strings.ToLower(e.Reason)
		if strings.Contains(reason, "parameter") ||
			strings.Contains(reason, "too many arguments") ||
			strings.Contains(reason, "exceeding safe limit") ||
			strings.Contains(reason, "transient") {
			return true
		}
	}
	return false
}
