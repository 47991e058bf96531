package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/models"
)

// VariationRepository persists message variation sets. It satisfies
// rotation.VariationStore. Variants are stored as a single JSONB document per
// set; sets are small (a handful of variants) and always read and written
// whole.
type VariationRepository struct {
	db *PostgresDB
}

// NewVariationRepository creates a new variation repository
func NewVariationRepository(db *PostgresDB) *VariationRepository {
	return &VariationRepository{db: db}
}

// Get retrieves one variation set scoped to the account.
func (r *VariationRepository) Get(ctx context.Context, accountID, variationID string) (*models.MessageVariationSet, error) {
	query := `
		SELECT id, account_id, original_message, policy, variants, created_at, updated_at
		FROM message_variation_sets
		WHERE account_id = $1 AND id = $2
	`

	set, err := scanVariationSet(r.db.Pool().QueryRow(ctx, query, accountID, variationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("variation set", variationID)
		}
		return nil, apperrors.NewDatabaseError("get variation set", err)
	}
	return set, nil
}

// Save stores a variation set, overwriting any existing row.
func (r *VariationRepository) Save(ctx context.Context, set *models.MessageVariationSet) error {
	variantsJSON, err := json.Marshal(set.Variants)
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	query := `
		INSERT INTO message_variation_sets (
			id, account_id, original_message, policy, variants, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			original_message = EXCLUDED.original_message,
			policy = EXCLUDED.policy,
			variants = EXCLUDED.variants,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Pool().Exec(ctx, query,
		set.ID,
		set.AccountID,
		set.OriginalMessage,
		set.Policy,
		variantsJSON,
		set.CreatedAt,
		set.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("save variation set", err)
	}

	return nil
}

// Delete removes one variation set scoped to the account.
func (r *VariationRepository) Delete(ctx context.Context, accountID, variationID string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`DELETE FROM message_variation_sets WHERE account_id = $1 AND id = $2`,
		accountID, variationID)
	if err != nil {
		return apperrors.NewDatabaseError("delete variation set", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("variation set", variationID)
	}
	return nil
}

// ListByAccount returns every variation set stored for the account.
func (r *VariationRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.MessageVariationSet, error) {
	query := `
		SELECT id, account_id, original_message, policy, variants, created_at, updated_at
		FROM message_variation_sets
		WHERE account_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool().Query(ctx, query, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list variation sets", err)
	}
	defer rows.Close()

	var sets []*models.MessageVariationSet
	for rows.Next() {
		set, err := scanVariationSet(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("list variation sets", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list variation sets", err)
	}

	return sets, nil
}

func scanVariationSet(row pgx.Row) (*models.MessageVariationSet, error) {
	var set models.MessageVariationSet
	var variantsJSON []byte

	err := row.Scan(
		&set.ID,
		&set.AccountID,
		&set.OriginalMessage,
		&set.Policy,
		&variantsJSON,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(variantsJSON, &set.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	return &set, nil
}
