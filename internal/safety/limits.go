// Package safety implements the LinkedIn account-safety controller: per-account
// action limits, warm-up ramping, usage tracking, pacing, and the action gate.
package safety

import (
	"time"

	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// LimitPreset holds the built-in caps for one account tier. The numbers are
// tuned to stay well under publicly known platform thresholds.
type LimitPreset struct {
	Daily      map[types.ActionType]int
	Weekly     map[types.ActionType]int
	TotalDaily int
}

// tierPresets are the built-in per-tier defaults. Unknown tiers fall back to
// the free preset, the most conservative one.
var tierPresets = map[types.AccountType]LimitPreset{
	types.AccountFree: {
		Daily: map[types.ActionType]int{
			types.ActionConnectionRequest: 20,
			types.ActionMessage:           50,
			types.ActionProfileView:       50,
			types.ActionPostLike:          30,
			types.ActionEndorsement:       15,
			types.ActionSearchPull:        20,
		},
		Weekly: map[types.ActionType]int{
			types.ActionConnectionRequest: 100,
			types.ActionMessage:           250,
			types.ActionProfileView:       250,
			types.ActionPostLike:          150,
			types.ActionEndorsement:       75,
			types.ActionSearchPull:        100,
		},
		TotalDaily: 120,
	},
	types.AccountPremium: {
		Daily: map[types.ActionType]int{
			types.ActionConnectionRequest: 35,
			types.ActionMessage:           80,
			types.ActionProfileView:       100,
			types.ActionPostLike:          50,
			types.ActionEndorsement:       25,
			types.ActionSearchPull:        40,
		},
		Weekly: map[types.ActionType]int{
			types.ActionConnectionRequest: 175,
			types.ActionMessage:           400,
			types.ActionProfileView:       500,
			types.ActionPostLike:          250,
			types.ActionEndorsement:       125,
			types.ActionSearchPull:        200,
		},
		TotalDaily: 220,
	},
	types.AccountSalesNavigator: {
		Daily: map[types.ActionType]int{
			types.ActionConnectionRequest: 50,
			types.ActionMessage:           120,
			types.ActionProfileView:       150,
			types.ActionPostLike:          75,
			types.ActionEndorsement:       40,
			types.ActionSearchPull:        75,
		},
		Weekly: map[types.ActionType]int{
			types.ActionConnectionRequest: 250,
			types.ActionMessage:           600,
			types.ActionProfileView:       750,
			types.ActionPostLike:          375,
			types.ActionEndorsement:       200,
			types.ActionSearchPull:        375,
		},
		TotalDaily: 350,
	},
}

// PresetForTier returns the built-in limit preset for a tier. Unknown tiers
// get the free preset.
func PresetForTier(tier types.AccountType) LimitPreset {
	preset, ok := tierPresets[tier]
	if !ok {
		return tierPresets[types.AccountFree]
	}
	return preset
}

// EffectiveLimits is the merged result of tier defaults, custom overrides, and
// warm-up tightening for one account at one point in time.
type EffectiveLimits struct {
	Daily          map[types.ActionType]int `json:"daily"`
	Weekly         map[types.ActionType]int `json:"weekly"`
	TotalDaily     int                      `json:"totalDaily"`
	WarmUpActive   bool                     `json:"warmUpActive"`
	WarmUpStageIdx int                      `json:"warmUpStageIndex"`
}

// DailyCap returns the effective daily cap for an action type, zero when the
// action is not available to the account.
func (e EffectiveLimits) DailyCap(action types.ActionType) int {
	return e.Daily[action]
}

// WeeklyCap returns the effective weekly cap for an action type. Zero means
// the action has no weekly cap; only a zero daily cap marks an action
// unsupported for the account.
func (e EffectiveLimits) WeeklyCap(action types.ActionType) int {
	return e.Weekly[action]
}

// ResolveLimits computes the effective limits for a profile at the given time.
// It is a pure function of its inputs and never mutates the profile.
//
// Resolution order:
//  1. tier preset (unknown tier falls back to free)
//  2. custom overrides win field-by-field where explicitly present
//  3. warm-up stage caps min-merge on top: warm-up only ever tightens
func ResolveLimits(profile *models.AccountSafetyProfile, ladder []models.WarmUpStage, now time.Time) EffectiveLimits {
	preset := PresetForTier(profile.AccountType)

	limits := EffectiveLimits{
		Daily:      make(map[types.ActionType]int, len(preset.Daily)),
		Weekly:     make(map[types.ActionType]int, len(preset.Weekly)),
		TotalDaily: preset.TotalDaily,
	}
	for action, cap := range preset.Daily {
		limits.Daily[action] = cap
	}
	for action, cap := range preset.Weekly {
		limits.Weekly[action] = cap
	}

	for action, cap := range profile.DailyLimits {
		limits.Daily[action] = cap
	}
	for action, cap := range profile.WeeklyLimits {
		limits.Weekly[action] = cap
	}

	if !profile.WarmUp.Enabled {
		return limits
	}

	stage, idx, ok := activeWarmUpStage(ladder, warmUpElapsedDays(profile, now))
	if !ok {
		return limits
	}

	limits.WarmUpActive = true
	limits.WarmUpStageIdx = idx
	for action, cap := range limits.Daily {
		if stageCap, has := stage.DailyCaps[action]; has && stageCap < cap {
			limits.Daily[action] = stageCap
		}
	}
	if stage.TotalDailyCap > 0 && stage.TotalDailyCap < limits.TotalDaily {
		limits.TotalDaily = stage.TotalDailyCap
	}

	return limits
}
