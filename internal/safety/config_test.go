package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafetyConfig(t *testing.T) {
	cfg := NewSafetyConfig()

	assert.Equal(t, DefaultMinDelaySeconds, cfg.MinDelaySeconds)
	assert.Equal(t, DefaultMaxDelaySeconds, cfg.MaxDelaySeconds)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultBatchPauseSeconds, cfg.BatchPauseSeconds)
	assert.Equal(t, DefaultRecentLogWindow, cfg.RecentLogWindow)
	assert.Equal(t, DefaultLowAcceptanceRate, cfg.LowAcceptanceRate)
	assert.Equal(t, DefaultPendingInvitationCeiling, cfg.PendingInvitationCeiling)
	assert.Equal(t, DefaultMaxConsecutiveFailures, cfg.MaxConsecutiveFailures)
	require.NoError(t, cfg.Validate())
}

func TestSafetyConfigLoadFromEnv(t *testing.T) {
	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv(EnvMinDelaySeconds, "10")
		t.Setenv(EnvMaxDelaySeconds, "40")
		t.Setenv(EnvBatchSize, "5")

		cfg := LoadFromEnv()
		assert.Equal(t, 10, cfg.MinDelaySeconds)
		assert.Equal(t, 40, cfg.MaxDelaySeconds)
		assert.Equal(t, 5, cfg.BatchSize)
		// Untouched values keep defaults.
		assert.Equal(t, DefaultBatchPauseSeconds, cfg.BatchPauseSeconds)
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		t.Setenv(EnvBatchSize, "not-a-number")
		t.Setenv(EnvMaxDelaySeconds, "-5")

		cfg := LoadFromEnv()
		assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
		assert.Equal(t, DefaultMaxDelaySeconds, cfg.MaxDelaySeconds)
	})

	t.Run("inconsistent combination falls back entirely", func(t *testing.T) {
		t.Setenv(EnvMinDelaySeconds, "100")
		t.Setenv(EnvMaxDelaySeconds, "50")

		cfg := LoadFromEnv()
		assert.Equal(t, DefaultMinDelaySeconds, cfg.MinDelaySeconds)
		assert.Equal(t, DefaultMaxDelaySeconds, cfg.MaxDelaySeconds)
	})
}

func TestSafetyConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SafetyConfig)
		errMsg string
	}{
		{
			name:   "zero min delay",
			mutate: func(c *SafetyConfig) { c.MinDelaySeconds = 0 },
			errMsg: "MinDelaySeconds must be positive",
		},
		{
			name:   "min exceeds max",
			mutate: func(c *SafetyConfig) { c.MinDelaySeconds = 90; c.MaxDelaySeconds = 30 },
			errMsg: "cannot exceed MaxDelaySeconds",
		},
		{
			name:   "zero batch size",
			mutate: func(c *SafetyConfig) { c.BatchSize = 0 },
			errMsg: "BatchSize must be positive",
		},
		{
			name:   "acceptance rate above one",
			mutate: func(c *SafetyConfig) { c.LowAcceptanceRate = 1.5 },
			errMsg: "LowAcceptanceRate must be between 0 and 1",
		},
		{
			name:   "zero pending ceiling",
			mutate: func(c *SafetyConfig) { c.PendingInvitationCeiling = 0 },
			errMsg: "PendingInvitationCeiling must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewSafetyConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
