// Package retry provides exponential backoff for transient store failures.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/logging"
)

// Config configures retry behavior.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts, including the first
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Ceiling on the backoff delay
	Multiplier   float64       // Multiplier for exponential backoff
}

// DefaultConfig returns the default backoff schedule: 1s, 2s, 4s, 8s, capped at 30s.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Func is an operation that can be retried. The attempt number starts at 1.
type Func func(ctx context.Context, attempt int) error

// Do executes fn with exponential backoff. It stops early when the error is
// not retryable or the context is cancelled, and returns the last error.
func Do(ctx context.Context, config *Config, fn Func) error {
	if config == nil {
		config = DefaultConfig()
	}
	logger := logging.FromContext(ctx)
	startTime := time.Now()

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.WithFields(map[string]interface{}{
					"attempts":      attempt,
					"totalDuration": time.Since(startTime).String(),
				}).Info("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !apperrors.IsRetryable(err) {
			logger.WithError(err).Warn("Error is not retryable, giving up")
			return err
		}
		if attempt >= config.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoffDelay(config, attempt)
		logger.WithFields(map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": config.MaxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		}).Warn("Operation failed, backing off before retry")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logger.WithFields(map[string]interface{}{
		"attempts":      config.MaxAttempts,
		"totalDuration": time.Since(startTime).String(),
	}).Error("Operation failed after max retry attempts")
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// backoffDelay computes initialDelay * multiplier^(attempt-1), capped at MaxDelay.
func backoffDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
