// Package repository is the thin sqlx-backed lookup layer AuthGate and
// the generate-key CLI depend on, kept free of any domain logic so
// internal/auth stays pure (spec §4.8).
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Ladvien/self-sensored/internal/apperr"
	"github.com/Ladvien/self-sensored/internal/auth"
	"github.com/Ladvien/self-sensored/internal/model"
)

// KeyStore implements auth.KeyStore against the users/api_keys tables.
type KeyStore struct {
	db *sqlx.DB
}

var _ auth.KeyStore = (*KeyStore)(nil)

func NewKeyStore(db *sqlx.DB) *KeyStore {
	return &KeyStore{db: db}
}

// FindCandidatesByPrefix returns every api_key row, active or not,
// whose lookup_prefix matches, since the full secret can only be verified after
// Argon2 comparison (spec §4.8 bullet 1, the prefix-indexed lookup).
func (k *KeyStore) FindCandidatesByPrefix(ctx context.Context, prefix string) ([]model.ApiKey, error) {
	const q = `
		SELECT id, user_id, secret_hash, scopes, expires_at, rate_limit_per_hour, active
		FROM api_keys
		WHERE lookup_prefix = $1
	`
	var rows []apiKeyRow
	if err := k.db.SelectContext(ctx, &rows, q, prefix); err != nil {
		return nil, wrapPQ(err)
	}

	out := make([]model.ApiKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// FindUser looks up a user by ID, returning (nil, nil) when absent so
// callers can distinguish "no such user" from an infrastructure error.
func (k *KeyStore) FindUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	const q = `SELECT id, email, active FROM users WHERE id = $1`
	var r userRow
	err := k.db.GetContext(ctx, &r, q, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPQ(err)
	}
	u := r.toModel()
	return &u, nil
}

// CreateUser inserts a new user, used by cmd/generate-key to create
// the owning user of every key it persists.
func (k *KeyStore) CreateUser(ctx context.Context, email string) (*model.User, error) {
	id := uuid.New()
	const q = `INSERT INTO users (id, email, active) VALUES ($1, $2, true)`
	if _, err := k.db.ExecContext(ctx, q, id, email); err != nil {
		return nil, wrapPQ(err)
	}
	return &model.User{ID: id, Email: email, Active: true}, nil
}

// CreateAPIKey persists a newly-minted key's hash and lookup prefix;
// the plaintext secret never touches this layer (spec §4.8, §6.5).
func (k *KeyStore) CreateAPIKey(ctx context.Context, userID uuid.UUID, secretHash, lookupPrefix string, rateLimitPerHour *int) (*model.ApiKey, error) {
	id := uuid.New()
	const q = `
		INSERT INTO api_keys (id, user_id, secret_hash, lookup_prefix, scopes, rate_limit_per_hour, active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
	`
	if _, err := k.db.ExecContext(ctx, q, id, userID, secretHash, lookupPrefix, pq.Array([]string{}), rateLimitPerHour); err != nil {
		return nil, wrapPQ(err)
	}
	return &model.ApiKey{ID: id, UserID: userID, SecretHash: secretHash, RateLimitPerHour: rateLimitPerHour, Active: true}, nil
}

type apiKeyRow struct {
	ID               uuid.UUID      `db:"id"`
	UserID           uuid.UUID      `db:"user_id"`
	SecretHash       string         `db:"secret_hash"`
	Scopes           pq.StringArray `db:"scopes"`
	ExpiresAt        sql.NullTime   `db:"expires_at"`
	RateLimitPerHour *int           `db:"rate_limit_per_hour"`
	Active           bool           `db:"active"`
}

func (r apiKeyRow) toModel() model.ApiKey {
	k := model.ApiKey{
		ID:               r.ID,
		UserID:           r.UserID,
		SecretHash:       r.SecretHash,
		Scopes:           []string(r.Scopes),
		RateLimitPerHour: r.RateLimitPerHour,
		Active:           r.Active,
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		k.ExpiresAt = &t
	}
	return k
}

type userRow struct {
	ID     uuid.UUID `db:"id"`
	Email  string    `db:"email"`
	Active bool      `db:"active"`
}

func (r userRow) toModel() model.User {
	return model.User{ID: r.ID, Email: r.Email, Active: r.Active}
}

func wrapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return errors.Join(apperr.ErrTransient, err)
		}
	}
	return errors.Join(apperr.ErrFatal, err)
}
