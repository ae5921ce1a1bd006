// Package auth implements the AuthGate (C8): bearer-token
// authentication, per-key rate limiting, and audit-log emission
// (spec §4.8).
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/apperr"
	"github.com/Ladvien/self-sensored/internal/metrics"
	"github.com/Ladvien/self-sensored/internal/model"
)

// KeyStore is the lookup surface AuthGate needs; it is satisfied by a
// thin sqlx-backed repository so this package stays free of SQL.
type KeyStore interface {
	FindCandidatesByPrefix(ctx context.Context, prefix string) ([]model.ApiKey, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// RateLimitError is returned when a key's hourly quota is exhausted;
// RetryAfter is the hint the HTTP layer surfaces (spec §4.8 bullet 4).
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return apperr.ErrRateLimited }

// AuthGate denies every request that doesn't carry a valid, active,
// unexpired key whose owning user is active, and enforces that key's
// quota on success.
type AuthGate struct {
	store   KeyStore
	limiter RateLimiter
	audit   *AuditLogger
	cfg     config.AuthConfig
	metrics *metrics.Registry
}

func NewAuthGate(store KeyStore, limiter RateLimiter, audit *AuditLogger, cfg config.AuthConfig, reg *metrics.Registry) *AuthGate {
	return &AuthGate{store: store, limiter: limiter, audit: audit, cfg: cfg, metrics: reg}
}

func (g *AuthGate) authFailure() {
	if g.metrics != nil {
		g.metrics.AuthFailures.Inc()
	}
}

// Authenticate runs the full decision chain for one request's
// Authorization header (spec §4.8 bullets 1-3).
func (g *AuthGate) Authenticate(ctx context.Context, authHeader string) (*model.ApiKey, error) {
	secret, ok := ParseBearer(authHeader)
	if !ok {
		g.audit.AuthDecision(uuid.Nil, false, "token absent or malformed")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}

	candidates, err := g.store.FindCandidatesByPrefix(ctx, LookupPrefix(secret))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		verifyAgainstDummy(secret)
		g.audit.AuthDecision(uuid.Nil, false, "no matching key")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}

	var matched *model.ApiKey
	for i := range candidates {
		if VerifySecret(secret, candidates[i].SecretHash) {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		g.audit.AuthDecision(uuid.Nil, false, "no matching key")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}

	if !matched.Active {
		g.audit.AuthDecision(matched.ID, false, "key inactive")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}
	if matched.ExpiresAt != nil && matched.ExpiresAt.Before(time.Now().UTC()) {
		g.audit.AuthDecision(matched.ID, false, "key expired")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}

	user, err := g.store.FindUser(ctx, matched.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		g.audit.AuthDecision(matched.ID, false, "owning user inactive")
		g.authFailure()
		return nil, apperr.ErrUnauthorized
	}

	perHour := g.cfg.DefaultRateLimitPerHour
	if matched.RateLimitPerHour != nil {
		perHour = *matched.RateLimitPerHour
	}
	allowed, retryAfter, err := g.limiter.Allow(ctx, matched.ID.String(), perHour)
	if err != nil {
		return nil, err
	}
	if !allowed {
		g.audit.AuthDecision(matched.ID, false, "rate limit exceeded")
		if g.metrics != nil {
			g.metrics.RateLimitRejects.Inc()
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	g.audit.AuthDecision(matched.ID, true, "ok")
	return matched, nil
}

// IsUnauthorized reports whether err terminates the chain at any of
// the denial points in spec §4.8 bullet 3 (as opposed to a rate limit
// or infrastructure failure).
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized)
}
