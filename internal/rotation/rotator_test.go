package rotation

import (
	"context"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// memoryVariationStore is an in-memory VariationStore for tests.
type memoryVariationStore struct {
	sets map[string]*models.MessageVariationSet
}

func newMemoryVariationStore() *memoryVariationStore {
	return &memoryVariationStore{sets: make(map[string]*models.MessageVariationSet)}
}

func (s *memoryVariationStore) key(accountID, variationID string) string {
	return accountID + "/" + variationID
}

func (s *memoryVariationStore) Get(_ context.Context, accountID, variationID string) (*models.MessageVariationSet, error) {
	set, ok := s.sets[s.key(accountID, variationID)]
	if !ok {
		return nil, apperrors.NewNotFoundError("variation set", variationID)
	}
	clone := *set
	clone.Variants = append([]models.MessageVariant(nil), set.Variants...)
	return &clone, nil
}

func (s *memoryVariationStore) Save(_ context.Context, set *models.MessageVariationSet) error {
	clone := *set
	clone.Variants = append([]models.MessageVariant(nil), set.Variants...)
	s.sets[s.key(set.AccountID, set.ID)] = &clone
	return nil
}

func (s *memoryVariationStore) Delete(_ context.Context, accountID, variationID string) error {
	key := s.key(accountID, variationID)
	if _, ok := s.sets[key]; !ok {
		return apperrors.NewNotFoundError("variation set", variationID)
	}
	delete(s.sets, key)
	return nil
}

func (s *memoryVariationStore) ListByAccount(_ context.Context, accountID string) ([]*models.MessageVariationSet, error) {
	var sets []*models.MessageVariationSet
	for _, set := range s.sets {
		if set.AccountID == accountID {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

func setupTestRotator(t *testing.T) (*Rotator, *memoryVariationStore) {
	t.Helper()
	store := newMemoryVariationStore()
	rotator, err := NewRotator(&RotatorConfig{Store: store, Seed: 1})
	require.NoError(t, err)
	return rotator, store
}

func TestNewRotator(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewRotator(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing store", func(t *testing.T) {
		_, err := NewRotator(&RotatorConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "variation store is required")
	})
}

func TestCreateVariations(t *testing.T) {
	ctx := context.Background()

	t.Run("original becomes the control at index zero", func(t *testing.T) {
		rotator, _ := setupTestRotator(t)

		set, err := rotator.CreateVariations(ctx, "acct-1", "Hi {name}!",
			[]string{"Hello {name},", "Hey {name} -"}, types.RotationSequential)
		require.NoError(t, err)
		assert.NotEmpty(t, set.ID)
		require.Len(t, set.Variants, 3)
		assert.Equal(t, "Hi {name}!", set.Variants[0].Text)
		assert.Equal(t, 0, set.Variants[0].Index)
		assert.Equal(t, 2, set.Variants[2].Index)
	})

	t.Run("empty policy defaults to sequential", func(t *testing.T) {
		rotator, _ := setupTestRotator(t)

		set, err := rotator.CreateVariations(ctx, "acct-1", "Hi", nil, "")
		require.NoError(t, err)
		assert.Equal(t, types.RotationSequential, set.Policy)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		rotator, _ := setupTestRotator(t)

		_, err := rotator.CreateVariations(ctx, "", "Hi", nil, types.RotationSequential)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))

		_, err = rotator.CreateVariations(ctx, "acct-1", "", nil, types.RotationSequential)
		require.Error(t, err)

		_, err = rotator.CreateVariations(ctx, "acct-1", "Hi", []string{""}, types.RotationSequential)
		require.Error(t, err)

		_, err = rotator.CreateVariations(ctx, "acct-1", "Hi", nil, types.RotationPolicy("bandit"))
		require.Error(t, err)
	})
}

func TestNextVariationSequential(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b", "c"}, types.RotationSequential)
	require.NoError(t, err)

	// Three variants, nine send cycles: each index comes back exactly three
	// times, in round-robin order starting at the control.
	counts := map[int]int{}
	for i := 0; i < 9; i++ {
		selection, err := rotator.NextVariation(ctx, "acct-1", set.ID)
		require.NoError(t, err)
		assert.Equal(t, i%3, selection.Index)
		counts[selection.Index]++
		require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, selection.Index, types.OutcomeSent))
	}
	assert.Equal(t, map[int]int{0: 3, 1: 3, 2: 3}, counts)
}

func TestNextVariationRandom(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b", "c"}, types.RotationRandom)
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		selection, err := rotator.NextVariation(ctx, "acct-1", set.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, selection.Index, 0)
		require.Less(t, selection.Index, 3)
		seen[selection.Index] = true
	}
	// With 100 uniform draws over 3 variants, missing one is practically
	// impossible with a fixed seed.
	assert.Len(t, seen, 3)
}

func TestNextVariationWeighted(t *testing.T) {
	ctx := context.Background()

	t.Run("cold start stays sequential until every variant has a send", func(t *testing.T) {
		rotator, _ := setupTestRotator(t)

		set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b", "c"}, types.RotationWeighted)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			selection, err := rotator.NextVariation(ctx, "acct-1", set.ID)
			require.NoError(t, err)
			assert.Equal(t, i, selection.Index, "cold start must round-robin")
			require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, selection.Index, types.OutcomeSent))
		}
	})

	t.Run("strong performer dominates once warmed", func(t *testing.T) {
		rotator, store := setupTestRotator(t)

		set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b", "c"}, types.RotationWeighted)
		require.NoError(t, err)

		// Variant 1 replies every time; the others never do.
		warmed, err := store.Get(ctx, "acct-1", set.ID)
		require.NoError(t, err)
		warmed.Variants[0].SentCount = 10
		warmed.Variants[1].SentCount = 10
		warmed.Variants[1].RepliedCount = 10
		warmed.Variants[2].SentCount = 10
		require.NoError(t, store.Save(ctx, warmed))

		for i := 0; i < 50; i++ {
			selection, err := rotator.NextVariation(ctx, "acct-1", set.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, selection.Index)
		}
	})

	t.Run("zero replies everywhere falls back to uniform picks", func(t *testing.T) {
		rotator, store := setupTestRotator(t)

		set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b"}, types.RotationWeighted)
		require.NoError(t, err)

		warmed, err := store.Get(ctx, "acct-1", set.ID)
		require.NoError(t, err)
		warmed.Variants[0].SentCount = 5
		warmed.Variants[1].SentCount = 5
		require.NoError(t, store.Save(ctx, warmed))

		seen := map[int]bool{}
		for i := 0; i < 50; i++ {
			selection, err := rotator.NextVariation(ctx, "acct-1", set.ID)
			require.NoError(t, err)
			seen[selection.Index] = true
		}
		assert.Len(t, seen, 2)
	})
}

func TestRecordUsageAndStats(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b"}, types.RotationSequential)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, 0, types.OutcomeSent))
	}
	require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, 0, types.OutcomeOpened))
	require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, 0, types.OutcomeOpened))
	require.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, 0, types.OutcomeReplied))

	stats, err := rotator.Stats(ctx, "acct-1", set.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 4, stats[0].SentCount)
	assert.InDelta(t, 0.5, stats[0].OpenRate, 1e-9)
	assert.InDelta(t, 0.25, stats[0].ReplyRate, 1e-9)

	// Unsent variant reports zero rates, not a division error.
	assert.Equal(t, 0, stats[1].SentCount)
	assert.Equal(t, 0.0, stats[1].OpenRate)
	assert.Equal(t, 0.0, stats[1].ReplyRate)
}

func TestRecordUsageValidation(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b"}, types.RotationSequential)
	require.NoError(t, err)

	t.Run("unknown outcome", func(t *testing.T) {
		err := rotator.RecordUsage(ctx, "acct-1", set.ID, 0, types.VariationOutcome("bounced"))
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("index out of range", func(t *testing.T) {
		err := rotator.RecordUsage(ctx, "acct-1", set.ID, 5, types.OutcomeSent)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("unknown set", func(t *testing.T) {
		err := rotator.RecordUsage(ctx, "acct-1", "nope", 0, types.OutcomeSent)
		require.Error(t, err)
	})
}

func TestRecordUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	set, err := rotator.CreateVariations(ctx, "acct-1", "a", []string{"b", "c"}, types.RotationSequential)
	require.NoError(t, err)

	// Concurrent same-account writers must not lose increments: each
	// RecordUsage is a read-modify-write of the whole set.
	const writers = 8
	const sendsPerWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < sendsPerWriter; i++ {
				idx := (w + i) % 3
				assert.NoError(t, rotator.RecordUsage(ctx, "acct-1", set.ID, idx, types.OutcomeSent))
			}
		}(w)
	}
	wg.Wait()

	stats, err := rotator.Stats(ctx, "acct-1", set.ID)
	require.NoError(t, err)

	total := 0
	for _, stat := range stats {
		total += stat.SentCount
	}
	assert.Equal(t, writers*sendsPerWriter, total)
}

func TestDeleteAndListVariations(t *testing.T) {
	ctx := context.Background()
	rotator, _ := setupTestRotator(t)

	first, err := rotator.CreateVariations(ctx, "acct-1", "a", nil, types.RotationSequential)
	require.NoError(t, err)
	_, err = rotator.CreateVariations(ctx, "acct-1", "b", nil, types.RotationSequential)
	require.NoError(t, err)

	sets, err := rotator.ListVariations(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, sets, 2)

	require.NoError(t, rotator.DeleteVariations(ctx, "acct-1", first.ID))

	sets, err = rotator.ListVariations(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, sets, 1)

	_, err = rotator.NextVariation(ctx, "acct-1", first.ID)
	require.Error(t, err)
}

// Sequential rotation visits every variant equally over any whole number of
// cycles, regardless of variant count.
func TestSequentialFairnessProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	ctx := context.Background()

	properties.Property("each variant selected exactly cycles times", prop.ForAll(
		func(variantCount int, cycles int) bool {
			rotator, _ := setupTestRotator(t)

			alternates := make([]string, variantCount-1)
			for i := range alternates {
				alternates[i] = "alt"
			}
			set, err := rotator.CreateVariations(ctx, "acct-pbt", "control", alternates, types.RotationSequential)
			if err != nil {
				return false
			}

			counts := make(map[int]int, variantCount)
			for i := 0; i < variantCount*cycles; i++ {
				selection, err := rotator.NextVariation(ctx, "acct-pbt", set.ID)
				if err != nil {
					return false
				}
				counts[selection.Index]++
				if err := rotator.RecordUsage(ctx, "acct-pbt", set.ID, selection.Index, types.OutcomeSent); err != nil {
					return false
				}
			}

			for idx := 0; idx < variantCount; idx++ {
				if counts[idx] != cycles {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
