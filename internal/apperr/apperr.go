// Package apperr defines the error taxonomy used to map failures to
// HTTP status codes and retry behavior (spec §7).
package apperr

import "errors"

// Category sentinels. Wrap with fmt.Errorf("...: %w", ErrX) and test
// with errors.Is.
var (
	// ErrValidation: per-sample out-of-range value, missing field, or
	// cross-field invariant. Never aborts the request.
	ErrValidation = errors.New("validation error")
	// ErrChunk: the database rejected one upsert statement (constraint
	// violation, bad column, budget violation). That chunk's rows are
	// failed; siblings proceed.
	ErrChunk = errors.New("chunk error")
	// ErrTransient: connection timeout or serialization conflict.
	// Retried up to policy; becomes ErrChunk on exhaustion.
	ErrTransient = errors.New("transient error")
	// ErrFatal: RawIngestion write failure or config invariant
	// violation. Aborts only the affected request with a 5xx.
	ErrFatal = errors.New("fatal error")
	// ErrStructural: malformed or oversize payload.
	ErrStructural = errors.New("structural error")
	// ErrUnauthorized: missing/invalid/expired token, inactive key or
	// user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited: quota exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrDeadline: request deadline exceeded before all buckets were
	// scheduled.
	ErrDeadline = errors.New("deadline exceeded")
)

// IsRetryable reports whether err represents a condition the caller
// should retry with backoff rather than fail the chunk immediately.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
