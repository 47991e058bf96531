package safety

import (
	"fmt"
	"time"

	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// DefaultWarmUpStages is the built-in warm-up ladder. Stage selection is purely
// time-driven: the active stage is whichever day range contains the account's
// elapsed days at resolution time. An account past the last stage's upper
// bound has graduated and runs on its base limits.
func DefaultWarmUpStages() []models.WarmUpStage {
	return []models.WarmUpStage{
		{
			DayRangeStart: 0, DayRangeEnd: 3,
			DailyCaps: map[types.ActionType]int{
				types.ActionConnectionRequest: 5,
				types.ActionMessage:           10,
				types.ActionProfileView:       20,
				types.ActionPostLike:          5,
				types.ActionEndorsement:       3,
				types.ActionSearchPull:        5,
			},
			TotalDailyCap: 30,
		},
		{
			DayRangeStart: 4, DayRangeEnd: 7,
			DailyCaps: map[types.ActionType]int{
				types.ActionConnectionRequest: 10,
				types.ActionMessage:           20,
				types.ActionProfileView:       35,
				types.ActionPostLike:          10,
				types.ActionEndorsement:       5,
				types.ActionSearchPull:        10,
			},
			TotalDailyCap: 60,
		},
		{
			DayRangeStart: 8, DayRangeEnd: 14,
			DailyCaps: map[types.ActionType]int{
				types.ActionConnectionRequest: 15,
				types.ActionMessage:           35,
				types.ActionProfileView:       50,
				types.ActionPostLike:          20,
				types.ActionEndorsement:       10,
				types.ActionSearchPull:        15,
			},
			TotalDailyCap: 90,
		},
		{
			DayRangeStart: 15, DayRangeEnd: 21,
			DailyCaps: map[types.ActionType]int{
				types.ActionConnectionRequest: 20,
				types.ActionMessage:           50,
				types.ActionProfileView:       75,
				types.ActionPostLike:          30,
				types.ActionEndorsement:       15,
				types.ActionSearchPull:        20,
			},
			TotalDailyCap: 120,
		},
	}
}

// warmUpElapsedDays returns the day count used to place an account on the
// ladder. A known account age at initialization time anchors the count, and
// days keep accruing from there so the account still walks the ladder and
// graduates; with no known age the count runs from when warm-up started.
func warmUpElapsedDays(profile *models.AccountSafetyProfile, now time.Time) int {
	if profile.AccountAgeDays > 0 {
		elapsed := profile.AccountAgeDays
		if !profile.CreatedAt.IsZero() {
			elapsed += daysBetween(profile.CreatedAt, now)
		}
		return elapsed
	}
	if profile.WarmUp.StartedAt != nil {
		return daysBetween(*profile.WarmUp.StartedAt, now)
	}
	return 0
}

// daysBetween counts whole days from start to now, never negative.
func daysBetween(start, now time.Time) int {
	days := int(now.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// activeWarmUpStage finds the stage whose day range contains elapsed days.
// ok is false when the account has graduated past the ladder.
func activeWarmUpStage(ladder []models.WarmUpStage, elapsedDays int) (models.WarmUpStage, int, bool) {
	for i, stage := range ladder {
		if stage.Contains(elapsedDays) {
			return stage, i, true
		}
	}
	return models.WarmUpStage{}, 0, false
}

// warmUpProgress summarizes the account's position on the ladder.
func warmUpProgress(profile *models.AccountSafetyProfile, ladder []models.WarmUpStage, now time.Time) models.WarmUpProgress {
	elapsed := warmUpElapsedDays(profile, now)
	progress := models.WarmUpProgress{
		Enabled:     profile.WarmUp.Enabled,
		StageCount:  len(ladder),
		ElapsedDays: elapsed,
	}

	if !profile.WarmUp.Enabled {
		progress.Description = "warm-up disabled"
		return progress
	}

	stage, idx, ok := activeWarmUpStage(ladder, elapsed)
	if !ok {
		progress.Graduated = true
		progress.StageIndex = len(ladder)
		progress.Description = "graduated: base limits in effect"
		return progress
	}

	progress.StageIndex = idx
	progress.DaysToNext = stage.DayRangeEnd - elapsed + 1
	progress.Description = fmt.Sprintf("stage %d of %d (days %d-%d)",
		idx+1, len(ladder), stage.DayRangeStart, stage.DayRangeEnd)
	return progress
}
