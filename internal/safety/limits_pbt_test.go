package safety

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// Warm-up may only ever tighten limits: at any account age, the resolved caps
// with warm-up enabled are bounded by the caps with warm-up disabled.
func TestWarmUpOnlyTightensProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ladder := DefaultWarmUpStages()
	tiers := []types.AccountType{
		types.AccountFree,
		types.AccountPremium,
		types.AccountSalesNavigator,
	}

	properties.Property("warm-up caps never exceed base caps", prop.ForAll(
		func(ageDays int, tierIdx int) bool {
			tier := tiers[tierIdx%len(tiers)]
			base := ResolveLimits(&models.AccountSafetyProfile{
				AccountID:      "pbt",
				AccountType:    tier,
				AccountAgeDays: ageDays,
			}, ladder, now)
			warmed := ResolveLimits(&models.AccountSafetyProfile{
				AccountID:      "pbt",
				AccountType:    tier,
				AccountAgeDays: ageDays,
				WarmUp:         models.WarmUpSettings{Enabled: true},
			}, ladder, now)

			for _, action := range types.AllActionTypes {
				if warmed.DailyCap(action) > base.DailyCap(action) {
					return false
				}
			}
			return warmed.TotalDaily <= base.TotalDaily
		},
		gen.IntRange(0, 60),
		gen.IntRange(0, 2),
	))

	properties.Property("stage caps are non-decreasing along the ladder", prop.ForAll(
		func(actionIdx int) bool {
			action := types.AllActionTypes[actionIdx%len(types.AllActionTypes)]
			prev := 0
			for _, stage := range ladder {
				cap, ok := stage.DailyCaps[action]
				if !ok || cap < prev {
					return false
				}
				prev = cap
			}
			return true
		},
		gen.IntRange(0, len(types.AllActionTypes)-1),
	))

	properties.TestingRun(t)
}
