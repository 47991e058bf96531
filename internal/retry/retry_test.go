package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/account-safety/internal/errors"
)

func fastConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
			calls++
			if calls < 3 {
				return apperrors.NewDatabaseError("save profile", assert.AnError)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
			calls++
			return apperrors.NewDatabaseError("save profile", assert.AnError)
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("does not retry validation errors", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(), func(ctx context.Context, attempt int) error {
			calls++
			return apperrors.NewInvalidParameterError("count", "cannot be negative")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Do(ctx, &Config{
			MaxAttempts:  10,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		}, func(ctx context.Context, attempt int) error {
			calls++
			cancel()
			return apperrors.NewDatabaseError("save profile", assert.AnError)
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		err := Do(context.Background(), nil, func(ctx context.Context, attempt int) error {
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestBackoffDelay(t *testing.T) {
	config := &Config{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, time.Second, backoffDelay(config, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(config, 2))
	assert.Equal(t, 4*time.Second, backoffDelay(config, 3))
	assert.Equal(t, 8*time.Second, backoffDelay(config, 4))
	assert.Equal(t, 10*time.Second, backoffDelay(config, 5))
}
