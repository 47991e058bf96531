package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/account-safety/internal/config"
	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// getTestDB returns a Postgres connection for testing, skipping the test when
// no database is reachable. Tables are created directly so the tests do not
// depend on the migration runner.
func getTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	cfg := &config.PostgresConfig{
		Host:           envOr("TEST_DB_HOST", "localhost"),
		Port:           envOr("TEST_DB_PORT", "5432"),
		Database:       envOr("TEST_DB_NAME", "account_safety_test"),
		User:           envOr("TEST_DB_USER", "safety"),
		Password:       envOr("TEST_DB_PASSWORD", "safety"),
		MaxConnections: 5,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := []string{
		`CREATE TABLE IF NOT EXISTS account_safety_profiles (
			account_id TEXT PRIMARY KEY,
			account_type TEXT NOT NULL,
			connection_count INTEGER NOT NULL DEFAULT 0,
			account_age_days INTEGER NOT NULL DEFAULT 0,
			ssi_score INTEGER,
			daily_limits JSONB,
			weekly_limits JSONB,
			action_delays JSONB NOT NULL,
			warm_up JSONB NOT NULL,
			safety_features JSONB NOT NULL,
			variations JSONB NOT NULL,
			working_hours JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message_variation_sets (
			id UUID PRIMARY KEY,
			account_id TEXT NOT NULL,
			original_message TEXT NOT NULL,
			policy TEXT NOT NULL,
			variants JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Pool().Exec(ctx, stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = db.Pool().Exec(ctx, `TRUNCATE account_safety_profiles, message_variation_sets`)
	})

	return db
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func TestProfileRepository(t *testing.T) {
	db := getTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	t.Run("get unknown account returns not configured", func(t *testing.T) {
		_, err := repo.Get(ctx, "ghost")
		require.Error(t, err)
		assert.True(t, apperrors.IsConfigurationError(err))
	})

	t.Run("save and get round-trips all fields", func(t *testing.T) {
		ssi := 62
		started := time.Now().UTC().Truncate(time.Second)
		profile := &models.AccountSafetyProfile{
			AccountID:       "acct-1",
			AccountType:     types.AccountPremium,
			ConnectionCount: 900,
			AccountAgeDays:  200,
			SSIScore:        &ssi,
			DailyLimits: map[types.ActionType]int{
				types.ActionConnectionRequest: 25,
			},
			ActionDelays: models.ActionDelaySettings{
				MinDelaySeconds:   20,
				MaxDelaySeconds:   60,
				BatchSize:         8,
				BatchPauseSeconds: 240,
			},
			WarmUp: models.WarmUpSettings{Enabled: true, StartedAt: &started},
			SafetyFeatures: models.SafetyFeatures{
				RandomizeDelays: true,
				DetectPatterns:  true,
			},
			Variations:   models.VariationSettings{Policy: types.RotationWeighted},
			WorkingHours: &models.WorkingHours{StartHour: 9, EndHour: 17, Timezone: "Europe/Berlin"},
		}
		require.NoError(t, repo.Save(ctx, profile))

		got, err := repo.Get(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, types.AccountPremium, got.AccountType)
		assert.Equal(t, 900, got.ConnectionCount)
		require.NotNil(t, got.SSIScore)
		assert.Equal(t, 62, *got.SSIScore)
		assert.Equal(t, 25, got.DailyLimits[types.ActionConnectionRequest])
		assert.Nil(t, got.WeeklyLimits)
		assert.Equal(t, 8, got.ActionDelays.BatchSize)
		assert.True(t, got.WarmUp.Enabled)
		require.NotNil(t, got.WarmUp.StartedAt)
		assert.True(t, started.Equal(*got.WarmUp.StartedAt))
		assert.Equal(t, types.RotationWeighted, got.Variations.Policy)
		require.NotNil(t, got.WorkingHours)
		assert.Equal(t, 9, got.WorkingHours.StartHour)
	})

	t.Run("save overwrites the existing row", func(t *testing.T) {
		profile := &models.AccountSafetyProfile{
			AccountID:   "acct-2",
			AccountType: types.AccountFree,
		}
		require.NoError(t, repo.Save(ctx, profile))

		profile.AccountType = types.AccountSalesNavigator
		profile.ConnectionCount = 50
		require.NoError(t, repo.Save(ctx, profile))

		got, err := repo.Get(ctx, "acct-2")
		require.NoError(t, err)
		assert.Equal(t, types.AccountSalesNavigator, got.AccountType)
		assert.Equal(t, 50, got.ConnectionCount)
	})

	t.Run("delete removes the profile", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, &models.AccountSafetyProfile{
			AccountID:   "acct-3",
			AccountType: types.AccountFree,
		}))
		require.NoError(t, repo.Delete(ctx, "acct-3"))

		_, err := repo.Get(ctx, "acct-3")
		require.Error(t, err)

		err = repo.Delete(ctx, "acct-3")
		require.Error(t, err)
		assert.True(t, apperrors.IsConfigurationError(err))
	})
}

func TestVariationRepository(t *testing.T) {
	db := getTestDB(t)
	repo := NewVariationRepository(db)
	ctx := context.Background()

	newSet := func(id, accountID string) *models.MessageVariationSet {
		now := time.Now().UTC().Truncate(time.Second)
		return &models.MessageVariationSet{
			ID:              id,
			AccountID:       accountID,
			OriginalMessage: "Hi {name}",
			Policy:          types.RotationSequential,
			Variants: []models.MessageVariant{
				{Index: 0, Text: "Hi {name}"},
				{Index: 1, Text: "Hello {name}"},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("save and get round-trips variants", func(t *testing.T) {
		set := newSet("11111111-1111-1111-1111-111111111111", "acct-1")
		set.Variants[1].SentCount = 3
		set.Variants[1].RepliedCount = 1
		require.NoError(t, repo.Save(ctx, set))

		got, err := repo.Get(ctx, "acct-1", set.ID)
		require.NoError(t, err)
		require.Len(t, got.Variants, 2)
		assert.Equal(t, 3, got.Variants[1].SentCount)
		assert.Equal(t, 1, got.Variants[1].RepliedCount)
		assert.Equal(t, types.RotationSequential, got.Policy)
	})

	t.Run("get is scoped to the account", func(t *testing.T) {
		set := newSet("22222222-2222-2222-2222-222222222222", "acct-1")
		require.NoError(t, repo.Save(ctx, set))

		_, err := repo.Get(ctx, "other-acct", set.ID)
		require.Error(t, err)
	})

	t.Run("list returns only the account's sets", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newSet("33333333-3333-3333-3333-333333333333", "acct-list")))
		require.NoError(t, repo.Save(ctx, newSet("44444444-4444-4444-4444-444444444444", "acct-list")))
		require.NoError(t, repo.Save(ctx, newSet("55555555-5555-5555-5555-555555555555", "acct-other")))

		sets, err := repo.ListByAccount(ctx, "acct-list")
		require.NoError(t, err)
		assert.Len(t, sets, 2)
	})

	t.Run("delete", func(t *testing.T) {
		set := newSet("66666666-6666-6666-6666-666666666666", "acct-1")
		require.NoError(t, repo.Save(ctx, set))
		require.NoError(t, repo.Delete(ctx, "acct-1", set.ID))

		err := repo.Delete(ctx, "acct-1", set.ID)
		require.Error(t, err)
	})
}
