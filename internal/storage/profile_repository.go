package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/models"
)

// ProfileRepository persists account safety profiles. It satisfies
// safety.ProfileStore: Get returns an account-not-configured error rather
// than inventing default limits for unknown accounts.
type ProfileRepository struct {
	db *PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *PostgresDB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves the safety profile for an account.
func (r *ProfileRepository) Get(ctx context.Context, accountID string) (*models.AccountSafetyProfile, error) {
	query := `
		SELECT account_id, account_type, connection_count, account_age_days, ssi_score,
		       daily_limits, weekly_limits, action_delays, warm_up, safety_features,
		       variations, working_hours, created_at, updated_at
		FROM account_safety_profiles
		WHERE account_id = $1
	`

	var profile models.AccountSafetyProfile
	var dailyJSON, weeklyJSON, delaysJSON, warmUpJSON, featuresJSON, variationsJSON, hoursJSON []byte

	err := r.db.Pool().QueryRow(ctx, query, accountID).Scan(
		&profile.AccountID,
		&profile.AccountType,
		&profile.ConnectionCount,
		&profile.AccountAgeDays,
		&profile.SSIScore,
		&dailyJSON,
		&weeklyJSON,
		&delaysJSON,
		&warmUpJSON,
		&featuresJSON,
		&variationsJSON,
		&hoursJSON,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAccountNotConfiguredError(accountID)
		}
		return nil, apperrors.NewDatabaseError("get profile", err)
	}

	if err := unmarshalInto(dailyJSON, &profile.DailyLimits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal daily limits: %w", err)
	}
	if err := unmarshalInto(weeklyJSON, &profile.WeeklyLimits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weekly limits: %w", err)
	}
	if err := unmarshalInto(delaysJSON, &profile.ActionDelays); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action delays: %w", err)
	}
	if err := unmarshalInto(warmUpJSON, &profile.WarmUp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warm-up settings: %w", err)
	}
	if err := unmarshalInto(featuresJSON, &profile.SafetyFeatures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal safety features: %w", err)
	}
	if err := unmarshalInto(variationsJSON, &profile.Variations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variation settings: %w", err)
	}
	if len(hoursJSON) > 0 {
		var hours models.WorkingHours
		if err := json.Unmarshal(hoursJSON, &hours); err != nil {
			return nil, fmt.Errorf("failed to unmarshal working hours: %w", err)
		}
		profile.WorkingHours = &hours
	}

	return &profile, nil
}

// Save stores a profile, inserting or overwriting the account's row.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.AccountSafetyProfile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	profile.UpdatedAt = time.Now().UTC()

	dailyJSON, err := marshalOrNil(profile.DailyLimits)
	if err != nil {
		return fmt.Errorf("failed to marshal daily limits: %w", err)
	}
	weeklyJSON, err := marshalOrNil(profile.WeeklyLimits)
	if err != nil {
		return fmt.Errorf("failed to marshal weekly limits: %w", err)
	}
	delaysJSON, err := json.Marshal(profile.ActionDelays)
	if err != nil {
		return fmt.Errorf("failed to marshal action delays: %w", err)
	}
	warmUpJSON, err := json.Marshal(profile.WarmUp)
	if err != nil {
		return fmt.Errorf("failed to marshal warm-up settings: %w", err)
	}
	featuresJSON, err := json.Marshal(profile.SafetyFeatures)
	if err != nil {
		return fmt.Errorf("failed to marshal safety features: %w", err)
	}
	variationsJSON, err := json.Marshal(profile.Variations)
	if err != nil {
		return fmt.Errorf("failed to marshal variation settings: %w", err)
	}
	hoursJSON, err := marshalOrNil(profile.WorkingHours)
	if err != nil {
		return fmt.Errorf("failed to marshal working hours: %w", err)
	}

	query := `
		INSERT INTO account_safety_profiles (
			account_id, account_type, connection_count, account_age_days, ssi_score,
			daily_limits, weekly_limits, action_delays, warm_up, safety_features,
			variations, working_hours, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account_id) DO UPDATE SET
			account_type = EXCLUDED.account_type,
			connection_count = EXCLUDED.connection_count,
			account_age_days = EXCLUDED.account_age_days,
			ssi_score = EXCLUDED.ssi_score,
			daily_limits = EXCLUDED.daily_limits,
			weekly_limits = EXCLUDED.weekly_limits,
			action_delays = EXCLUDED.action_delays,
			warm_up = EXCLUDED.warm_up,
			safety_features = EXCLUDED.safety_features,
			variations = EXCLUDED.variations,
			working_hours = EXCLUDED.working_hours,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Pool().Exec(ctx, query,
		profile.AccountID,
		profile.AccountType,
		profile.ConnectionCount,
		profile.AccountAgeDays,
		profile.SSIScore,
		dailyJSON,
		weeklyJSON,
		delaysJSON,
		warmUpJSON,
		featuresJSON,
		variationsJSON,
		hoursJSON,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("save profile", err)
	}

	return nil
}

// Delete removes the account's profile.
func (r *ProfileRepository) Delete(ctx context.Context, accountID string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM account_safety_profiles WHERE account_id = $1`, accountID)
	if err != nil {
		return apperrors.NewDatabaseError("delete profile", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewAccountNotConfiguredError(accountID)
	}
	return nil
}

// List returns every stored profile's account ID.
func (r *ProfileRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT account_id FROM account_safety_profiles ORDER BY account_id`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list profiles", err)
	}
	defer rows.Close()

	var accountIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDatabaseError("list profiles", err)
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list profiles", err)
	}

	return accountIDs, nil
}

// marshalOrNil marshals a value, keeping optional columns NULL when the value
// is a nil map or nil pointer.
func marshalOrNil(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// unmarshalInto decodes JSON into dst, treating empty input as absent.
func unmarshalInto(data []byte, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
