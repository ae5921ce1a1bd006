// Package rawstore implements the Raw Payload Store (C5): durable,
// content-addressed persistence of every received request body ahead
// of validation, so a batch failure is always replayable from the
// exact bytes the client sent (spec §4.2).
package rawstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Ladvien/self-sensored/internal/apperr"
	"github.com/Ladvien/self-sensored/internal/model"
)

// DedupWindow bounds how far back a content hash collision is treated
// as a client retry rather than a new ingestion (spec §4.2 step 2).
const DedupWindow = time.Hour

// DB is the narrow sqlx surface Store needs, letting tests substitute
// an in-memory fake rather than standing up a database (the same
// dependency-inversion shape as auth.KeyStore).
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// Store persists RawIngestion rows and is the single source of truth
// Reprocessor reads from.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// ContentHash is the lowercase hex SHA-256 digest of a raw body, used
// as the dedup key within DedupWindow.
func ContentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Persist durably records a structurally-valid payload as pending. If
// an identical body from the same user arrived within DedupWindow, the
// existing row is returned instead of writing a duplicate (spec §4.2
// step 2, idempotent-retry behavior).
func (s *Store) Persist(ctx context.Context, userID, apiKeyID uuid.UUID, body []byte) (*model.RawIngestion, error) {
	hash := ContentHash(body)

	existing, err := s.findRecentDuplicate(ctx, userID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	row := &model.RawIngestion{
		ID:          uuid.New(),
		UserID:      userID,
		ApiKeyID:    apiKeyID,
		Payload:     body,
		ContentHash: hash,
		SizeBytes:   int64(len(body)),
		Status:      model.StatusPending,
		IngestedAt:  time.Now().UTC(),
	}

	const q = `
		INSERT INTO raw_ingestions (id, user_id, api_key_id, payload, content_hash, size_bytes, status, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, q, row.ID, row.UserID, row.ApiKeyID, row.Payload,
		row.ContentHash, row.SizeBytes, row.Status, row.IngestedAt)
	if err != nil {
		return nil, wrapPQ(err)
	}
	return row, nil
}

// PersistCorrupt records a payload that failed structural validation
// before any sample extraction was attempted (spec §4.2 step 1,
// "garbage in still lands durably"). Status is set directly to error,
// so ListRecoverable returns the row; the Reprocessor skips it unless
// the parse-failure reason matches one of its recoverable signatures.
func (s *Store) PersistCorrupt(ctx context.Context, userID, apiKeyID uuid.UUID, body []byte, reason string) (*model.RawIngestion, error) {
	row := &model.RawIngestion{
		ID:          uuid.New(),
		UserID:      userID,
		ApiKeyID:    apiKeyID,
		Payload:     body,
		ContentHash: ContentHash(body),
		SizeBytes:   int64(len(body)),
		Status:      model.StatusError,
		ProcessingErrors: []model.ProcessingError{
			{Reason: reason},
		},
		IngestedAt: time.Now().UTC(),
	}

	errs, err := json.Marshal(row.ProcessingErrors)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO raw_ingestions (id, user_id, api_key_id, payload, content_hash, size_bytes, status, processing_errors, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, q, row.ID, row.UserID, row.ApiKeyID, row.Payload,
		row.ContentHash, row.SizeBytes, row.Status, errs, row.IngestedAt)
	if err != nil {
		return nil, wrapPQ(err)
	}
	return row, nil
}

// UpdateStatus transitions a RawIngestion's lifecycle status. The
// monotone graph is pending->{processed,partial,error}, and
// error->processed only via the Reprocessor (spec §3.3); callers
// outside this package never pass status=processed for a row already
// in that state, so no compare-and-swap is needed here.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProcessingStatus, processingErrors []model.ProcessingError) error {
	errs, err := json.Marshal(processingErrors)
	if err != nil {
		return err
	}

	const q = `
		UPDATE raw_ingestions
		SET status = $2, processing_errors = $3, processed_at = $4
		WHERE id = $1
	`
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, q, id, status, errs, now)
	if err != nil {
		return wrapPQ(err)
	}
	return nil
}

// ListRecoverable returns RawIngestion rows in status=error, oldest
// first, for the Reprocessor to retry (spec §4.10 step 1).
func (s *Store) ListRecoverable(ctx context.Context, limit int) ([]model.RawIngestion, error) {
	const q = `
		SELECT id, user_id, api_key_id, payload, content_hash, size_bytes, status, processing_errors, ingested_at, processed_at
		FROM raw_ingestions
		WHERE status = $1
		ORDER BY ingested_at ASC
		LIMIT $2
	`
	rows, err := s.db.QueryxContext(ctx, q, model.StatusError, limit)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()

	var out []model.RawIngestion
	for rows.Next() {
		var r rawIngestionRow
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

func (s *Store) findRecentDuplicate(ctx context.Context, userID uuid.UUID, hash string) (*model.RawIngestion, error) {
	const q = `
		SELECT id, user_id, api_key_id, payload, content_hash, size_bytes, status, processing_errors, ingested_at, processed_at
		FROM raw_ingestions
		WHERE user_id = $1 AND content_hash = $2 AND ingested_at > $3
		ORDER BY ingested_at DESC
		LIMIT 1
	`
	var r rawIngestionRow
	err := s.db.GetContext(ctx, &r, q, userID, hash, time.Now().UTC().Add(-DedupWindow))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPQ(err)
	}
	row := r.toModel()
	return &row, nil
}

// rawIngestionRow mirrors the raw_ingestions table shape for sqlx
// scanning; processing_errors round-trips through JSON since pq has
// no native composite-array support for a variable-shape struct.
type rawIngestionRow struct {
	ID               uuid.UUID  `db:"id"`
	UserID           uuid.UUID  `db:"user_id"`
	ApiKeyID         uuid.UUID  `db:"api_key_id"`
	Payload          []byte     `db:"payload"`
	ContentHash      string     `db:"content_hash"`
	SizeBytes        int64      `db:"size_bytes"`
	Status           string     `db:"status"`
	ProcessingErrors []byte     `db:"processing_errors"`
	IngestedAt       time.Time  `db:"ingested_at"`
	ProcessedAt      *time.Time `db:"processed_at"`
}

func (r rawIngestionRow) toModel() model.RawIngestion {
	var errs []model.ProcessingError
	if len(r.ProcessingErrors) > 0 {
		_ = json.Unmarshal(r.ProcessingErrors, &errs)
	}
	return model.RawIngestion{
		ID:               r.ID,
		UserID:           r.UserID,
		ApiKeyID:         r.ApiKeyID,
		Payload:          r.Payload,
		ContentHash:      r.ContentHash,
		SizeBytes:        r.SizeBytes,
		Status:           model.ProcessingStatus(r.Status),
		ProcessingErrors: errs,
		IngestedAt:       r.IngestedAt,
		ProcessedAt:      r.ProcessedAt,
	}
}

func wrapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection, insufficient resources, operator intervention
			return errors.Join(apperr.ErrTransient, err)
		}
	}
	return errors.Join(apperr.ErrFatal, err)
}
