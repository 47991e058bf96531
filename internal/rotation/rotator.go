// Package rotation implements message-variation rotation: selecting which
// variant of an outreach message to send next and tracking per-variant
// outcomes so templated messages do not repeat verbatim at scale.
package rotation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/logging"
	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// VariationStore is the persistence boundary for variation sets. Get must
// return a not-found error for unknown IDs; Save overwrites the whole set.
type VariationStore interface {
	Get(ctx context.Context, accountID, variationID string) (*models.MessageVariationSet, error)
	Save(ctx context.Context, set *models.MessageVariationSet) error
	Delete(ctx context.Context, accountID, variationID string) error
	ListByAccount(ctx context.Context, accountID string) ([]*models.MessageVariationSet, error)
}

// Selection is the rotator's answer: which variant to send now.
type Selection struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Rotator selects message variants according to the set's rotation policy.
// Counter updates are read-modify-write against the store, so same-account
// writes serialize through a per-account lock; without it two concurrent
// RecordUsage calls would both read the same counters and one increment
// would be lost on save.
type Rotator struct {
	store  VariationStore
	logger *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand

	locksMu      sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// RotatorConfig holds the rotator's dependencies.
type RotatorConfig struct {
	// Store is the variation store. Required.
	Store VariationStore

	// Logger defaults to the global logger.
	Logger *logging.Logger

	// Seed overrides the RNG seed, for tests. Zero means time-based.
	Seed int64
}

// NewRotator creates a rotator with the given configuration.
func NewRotator(cfg *RotatorConfig) (*Rotator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("variation store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Rotator{
		store:        cfg.Store,
		logger:       logger,
		rng:          rand.New(rand.NewSource(seed)),
		accountLocks: make(map[string]*sync.Mutex),
	}, nil
}

// accountLock returns the mutex serializing writes for one account.
func (r *Rotator) accountLock(accountID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		r.accountLocks[accountID] = lock
	}
	return lock
}

// CreateVariations stores a new variation set for the account. The original
// message becomes variant 0, the control, followed by the alternates in the
// given order.
func (r *Rotator) CreateVariations(ctx context.Context, accountID, originalMessage string, variantTexts []string, policy types.RotationPolicy) (*models.MessageVariationSet, error) {
	if accountID == "" {
		return nil, apperrors.NewInvalidParameterError("accountId", "must not be empty")
	}
	if originalMessage == "" {
		return nil, apperrors.NewInvalidParameterError("originalMessage", "must not be empty")
	}
	for i, text := range variantTexts {
		if text == "" {
			return nil, apperrors.NewInvalidParameterError("variantTexts", fmt.Sprintf("variant %d is empty", i+1))
		}
	}
	if policy == "" {
		policy = types.RotationSequential
	}
	if !policy.Valid() {
		return nil, apperrors.NewInvalidParameterError("policy", fmt.Sprintf("unknown rotation policy: %s", policy))
	}

	variants := make([]models.MessageVariant, 0, len(variantTexts)+1)
	variants = append(variants, models.MessageVariant{Index: 0, Text: originalMessage})
	for i, text := range variantTexts {
		variants = append(variants, models.MessageVariant{Index: i + 1, Text: text})
	}

	now := time.Now().UTC()
	set := &models.MessageVariationSet{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		OriginalMessage: originalMessage,
		Policy:          policy,
		Variants:        variants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.store.Save(ctx, set); err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"accountId":   accountID,
		"variationId": set.ID,
		"variants":    len(variants),
		"policy":      string(policy),
	}).Info("Message variation set created")

	return set, nil
}

// NextVariation picks the variant to send next according to the set's policy.
// Selection does not record a send; the caller reports outcomes through
// RecordUsage once the message actually went out.
func (r *Rotator) NextVariation(ctx context.Context, accountID, variationID string) (*Selection, error) {
	set, err := r.store.Get(ctx, accountID, variationID)
	if err != nil {
		return nil, err
	}
	if len(set.Variants) == 0 {
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("variation set %s has no variants", variationID), nil)
	}

	var idx int
	switch set.Policy {
	case types.RotationRandom:
		idx = r.randomIndex(len(set.Variants))
	case types.RotationWeighted:
		idx = r.weightedIndex(set)
	default:
		idx = sequentialIndex(set)
	}

	variant := set.Variants[idx]
	return &Selection{Index: variant.Index, Text: variant.Text}, nil
}

// sequentialIndex round-robins on the total send count, so the rotation
// position survives restarts without separate cursor state.
func sequentialIndex(set *models.MessageVariationSet) int {
	return set.TotalSent() % len(set.Variants)
}

func (r *Rotator) randomIndex(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// weightedIndex picks proportionally to observed reply rates. Until every
// variant has at least one send there is no comparable signal, so it falls
// back to sequential to finish the cold start. With signal but zero replies
// everywhere, every variant is equally (un)proven and the pick is uniform.
func (r *Rotator) weightedIndex(set *models.MessageVariationSet) int {
	if !set.EveryVariantSent() {
		return sequentialIndex(set)
	}

	weights := make([]float64, len(set.Variants))
	total := 0.0
	for i, v := range set.Variants {
		weights[i] = float64(v.RepliedCount) / float64(v.SentCount)
		total += weights[i]
	}
	if total == 0 {
		return r.randomIndex(len(set.Variants))
	}

	r.mu.Lock()
	target := r.rng.Float64() * total
	r.mu.Unlock()

	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(set.Variants) - 1
}

// RecordUsage increments the outcome counter on one variant. Outcomes are
// monotonic: a reply implies an earlier send, but report order is the
// caller's responsibility and is not re-validated here.
func (r *Rotator) RecordUsage(ctx context.Context, accountID, variationID string, variantIndex int, outcome types.VariationOutcome) error {
	if !outcome.Valid() {
		return apperrors.NewInvalidParameterError("outcome", fmt.Sprintf("unknown outcome: %s", outcome))
	}

	lock := r.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	set, err := r.store.Get(ctx, accountID, variationID)
	if err != nil {
		return err
	}
	if variantIndex < 0 || variantIndex >= len(set.Variants) {
		return apperrors.NewInvalidParameterError("variantIndex",
			fmt.Sprintf("out of range: %d (set has %d variants)", variantIndex, len(set.Variants)))
	}

	switch outcome {
	case types.OutcomeSent:
		set.Variants[variantIndex].SentCount++
	case types.OutcomeOpened:
		set.Variants[variantIndex].OpenCount++
	case types.OutcomeReplied:
		set.Variants[variantIndex].RepliedCount++
	}
	set.UpdatedAt = time.Now().UTC()

	return r.store.Save(ctx, set)
}

// Stats returns each variant's performance, computed on read.
func (r *Rotator) Stats(ctx context.Context, accountID, variationID string) ([]models.VariationStats, error) {
	set, err := r.store.Get(ctx, accountID, variationID)
	if err != nil {
		return nil, err
	}

	stats := make([]models.VariationStats, len(set.Variants))
	for i, v := range set.Variants {
		stat := models.VariationStats{
			Index:     v.Index,
			Text:      v.Text,
			SentCount: v.SentCount,
		}
		if v.SentCount > 0 {
			stat.OpenRate = float64(v.OpenCount) / float64(v.SentCount)
			stat.ReplyRate = float64(v.RepliedCount) / float64(v.SentCount)
		}
		stats[i] = stat
	}
	return stats, nil
}

// DeleteVariations removes a variation set.
func (r *Rotator) DeleteVariations(ctx context.Context, accountID, variationID string) error {
	return r.store.Delete(ctx, accountID, variationID)
}

// ListVariations returns every variation set stored for the account.
func (r *Rotator) ListVariations(ctx context.Context, accountID string) ([]*models.MessageVariationSet, error) {
	return r.store.ListByAccount(ctx, accountID)
}
