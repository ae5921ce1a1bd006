package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/apperr"
)

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	attempts, err := withRetry(context.Background(), 3, time.Millisecond, 10*time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, attempts)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	attempts, err := withRetry(context.Background(), 3, time.Millisecond, 10*time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.Join(apperr.ErrTransient, errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, time.Millisecond, 10*time.Millisecond, func() error {
		calls++
		return apperr.ErrFatal
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), 3, time.Millisecond, 10*time.Millisecond, func() error {
		calls++
		return errors.Join(apperr.ErrTransient, errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
