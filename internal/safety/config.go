package safety

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
)

// Default safety configuration values.
const (
	DefaultMinDelaySeconds          = 30
	DefaultMaxDelaySeconds          = 90
	DefaultBatchSize                = 10
	DefaultBatchPauseSeconds        = 300
	DefaultRecentLogWindow          = 50
	DefaultLowAcceptanceRate        = 0.15
	DefaultPendingInvitationCeiling = 500
	DefaultMaxConsecutiveFailures   = 3
)

// Environment variable names for safety configuration.
const (
	EnvMinDelaySeconds          = "SAFETY_MIN_DELAY_SECONDS"
	EnvMaxDelaySeconds          = "SAFETY_MAX_DELAY_SECONDS"
	EnvBatchSize                = "SAFETY_BATCH_SIZE"
	EnvBatchPauseSeconds        = "SAFETY_BATCH_PAUSE_SECONDS"
	EnvRecentLogWindow          = "SAFETY_RECENT_LOG_WINDOW"
	EnvPendingInvitationCeiling = "SAFETY_PENDING_INVITATION_CEILING"
	EnvMaxConsecutiveFailures   = "SAFETY_MAX_CONSECUTIVE_FAILURES"
)

// SafetyConfig holds the controller-wide safety tunables. Per-account values
// stored in a profile always take precedence; these are the defaults seeded
// into newly initialized accounts plus the advisory thresholds.
type SafetyConfig struct {
	// MinDelaySeconds is the default lower bound for inter-action delays.
	// Environment: SAFETY_MIN_DELAY_SECONDS, Default: 30
	MinDelaySeconds int

	// MaxDelaySeconds is the default upper bound for inter-action delays.
	// Environment: SAFETY_MAX_DELAY_SECONDS, Default: 90
	MaxDelaySeconds int

	// BatchSize is the default number of consecutive actions before a batch
	// break is due. Environment: SAFETY_BATCH_SIZE, Default: 10
	BatchSize int

	// BatchPauseSeconds is the default batch break duration.
	// Environment: SAFETY_BATCH_PAUSE_SECONDS, Default: 300
	BatchPauseSeconds int

	// RecentLogWindow bounds the per-account recent action log.
	// Environment: SAFETY_RECENT_LOG_WINDOW, Default: 50
	RecentLogWindow int

	// LowAcceptanceRate is the advisory threshold below which a warning is
	// raised once enough requests have been sent. Default: 0.15
	LowAcceptanceRate float64

	// PendingInvitationCeiling is the advisory pending-invitation backlog
	// threshold. Environment: SAFETY_PENDING_INVITATION_CEILING, Default: 500
	PendingInvitationCeiling int

	// MaxConsecutiveFailures is the advisory threshold for recommending a
	// pause. Environment: SAFETY_MAX_CONSECUTIVE_FAILURES, Default: 3
	MaxConsecutiveFailures int
}

// NewSafetyConfig creates a SafetyConfig with default values.
func NewSafetyConfig() *SafetyConfig {
	return &SafetyConfig{
		MinDelaySeconds:          DefaultMinDelaySeconds,
		MaxDelaySeconds:          DefaultMaxDelaySeconds,
		BatchSize:                DefaultBatchSize,
		BatchPauseSeconds:        DefaultBatchPauseSeconds,
		RecentLogWindow:          DefaultRecentLogWindow,
		LowAcceptanceRate:        DefaultLowAcceptanceRate,
		PendingInvitationCeiling: DefaultPendingInvitationCeiling,
		MaxConsecutiveFailures:   DefaultMaxConsecutiveFailures,
	}
}

// LoadFromEnv loads safety configuration from environment variables.
// Invalid values are logged as warnings and defaults are used instead.
func LoadFromEnv() *SafetyConfig {
	cfg := NewSafetyConfig()

	loadEnvInt(EnvMinDelaySeconds, &cfg.MinDelaySeconds, func(v int) bool { return v > 0 })
	loadEnvInt(EnvMaxDelaySeconds, &cfg.MaxDelaySeconds, func(v int) bool { return v > 0 })
	loadEnvInt(EnvBatchSize, &cfg.BatchSize, func(v int) bool { return v > 0 })
	loadEnvInt(EnvBatchPauseSeconds, &cfg.BatchPauseSeconds, func(v int) bool { return v > 0 })
	loadEnvInt(EnvRecentLogWindow, &cfg.RecentLogWindow, func(v int) bool { return v > 0 })
	loadEnvInt(EnvPendingInvitationCeiling, &cfg.PendingInvitationCeiling, func(v int) bool { return v > 0 })
	loadEnvInt(EnvMaxConsecutiveFailures, &cfg.MaxConsecutiveFailures, func(v int) bool { return v > 0 })

	if err := cfg.Validate(); err != nil {
		log.Printf("WARNING: Safety configuration validation failed: %v. Using defaults.", err)
		return NewSafetyConfig()
	}

	return cfg
}

// loadEnvInt overwrites dst with the parsed environment value when it is set,
// parseable, and passes the validity check.
func loadEnvInt(key string, dst *int, valid func(int) bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}

	value, err := strconv.Atoi(raw)
	if err != nil || !valid(value) {
		log.Printf("WARNING: Invalid %s value %q, using default %d", key, raw, *dst)
		return
	}
	*dst = value
}

// Validate ensures the configuration is internally consistent.
func (c *SafetyConfig) Validate() error {
	if c.MinDelaySeconds <= 0 {
		return errors.New("MinDelaySeconds must be positive")
	}
	if c.MaxDelaySeconds <= 0 {
		return errors.New("MaxDelaySeconds must be positive")
	}
	if c.MinDelaySeconds > c.MaxDelaySeconds {
		return fmt.Errorf("MinDelaySeconds (%d) cannot exceed MaxDelaySeconds (%d)",
			c.MinDelaySeconds, c.MaxDelaySeconds)
	}
	if c.BatchSize <= 0 {
		return errors.New("BatchSize must be positive")
	}
	if c.BatchPauseSeconds <= 0 {
		return errors.New("BatchPauseSeconds must be positive")
	}
	if c.RecentLogWindow <= 0 {
		return errors.New("RecentLogWindow must be positive")
	}
	if c.LowAcceptanceRate < 0 || c.LowAcceptanceRate > 1 {
		return fmt.Errorf("LowAcceptanceRate must be between 0 and 1, got %.2f", c.LowAcceptanceRate)
	}
	if c.PendingInvitationCeiling <= 0 {
		return errors.New("PendingInvitationCeiling must be positive")
	}
	if c.MaxConsecutiveFailures <= 0 {
		return errors.New("MaxConsecutiveFailures must be positive")
	}
	return nil
}

// String returns a string representation of the configuration for logging.
func (c *SafetyConfig) String() string {
	return fmt.Sprintf(
		"SafetyConfig{MinDelay: %ds, MaxDelay: %ds, BatchSize: %d, BatchPause: %ds, LogWindow: %d, LowAcceptanceRate: %.2f, PendingCeiling: %d, MaxConsecutiveFailures: %d}",
		c.MinDelaySeconds, c.MaxDelaySeconds, c.BatchSize, c.BatchPauseSeconds,
		c.RecentLogWindow, c.LowAcceptanceRate, c.PendingInvitationCeiling, c.MaxConsecutiveFailures,
	)
}
