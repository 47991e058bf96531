// Package models provides data model definitions for the account safety controller.
package models

import (
	"time"

	"github.com/account-safety/internal/types"
)

// AccountSafetyProfile holds the safety configuration for one automated account.
// Limits maps are sparse: an absent action type falls back to the tier default
// when limits are resolved.
type AccountSafetyProfile struct {
	AccountID       string                   `json:"accountId"`
	AccountType     types.AccountType        `json:"accountType"`
	ConnectionCount int                      `json:"connectionCount"`
	AccountAgeDays  int                      `json:"accountAgeDays"`
	SSIScore        *int                     `json:"ssiScore,omitempty"`
	DailyLimits     map[types.ActionType]int `json:"dailyLimits,omitempty"`
	WeeklyLimits    map[types.ActionType]int `json:"weeklyLimits,omitempty"`
	ActionDelays    ActionDelaySettings      `json:"actionDelays"`
	WarmUp          WarmUpSettings           `json:"warmUp"`
	SafetyFeatures  SafetyFeatures           `json:"safetyFeatures"`
	Variations      VariationSettings        `json:"messageVariations"`
	WorkingHours    *WorkingHours            `json:"workingHours,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// WorkingHours is an advisory activity window in the account's local time.
// Acting outside it raises a recommendation but is never blocked.
type WorkingHours struct {
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	Timezone  string `json:"timezone,omitempty"`
}

// Contains reports whether the given time falls inside the window. Windows
// may wrap midnight (e.g. 22 to 6).
func (w WorkingHours) Contains(t time.Time) bool {
	hour := t.Hour()
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// Location resolves the configured timezone, falling back to UTC.
func (w WorkingHours) Location() *time.Location {
	if w.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActionDelaySettings controls pacing between consecutive actions.
type ActionDelaySettings struct {
	MinDelaySeconds   int `json:"minDelaySeconds"`
	MaxDelaySeconds   int `json:"maxDelaySeconds"`
	BatchSize         int `json:"batchSize"`
	BatchPauseSeconds int `json:"batchPauseSeconds"`
}

// WarmUpSettings tracks the warm-up ramp state for an account.
// CurrentStageIndex is bookkeeping only; the active stage is recomputed from
// elapsed time whenever limits are resolved.
type WarmUpSettings struct {
	Enabled           bool       `json:"enabled"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CurrentStageIndex int        `json:"currentStageIndex"`
}

// SafetyFeatures is a set of boolean safety toggles.
type SafetyFeatures struct {
	RandomizeDelays  bool `json:"randomizeDelays"`
	DetectPatterns   bool `json:"detectPatterns"`
	AutoPauseOnError bool `json:"autoPauseOnError"`
}

// VariationSettings configures message variation rotation for the account.
type VariationSettings struct {
	Policy types.RotationPolicy `json:"policy"`
}

// WarmUpStage describes one rung of the warm-up ladder. Caps replace the
// account's base limits via min-merge while the stage is active: warm-up can
// only tighten limits, never loosen them.
type WarmUpStage struct {
	DayRangeStart int                      `json:"dayRangeStart"`
	DayRangeEnd   int                      `json:"dayRangeEnd"`
	DailyCaps     map[types.ActionType]int `json:"dailyCaps"`
	TotalDailyCap int                      `json:"totalDailyCap"`
}

// Contains reports whether the given elapsed-day count falls inside the stage.
func (s WarmUpStage) Contains(day int) bool {
	return day >= s.DayRangeStart && day <= s.DayRangeEnd
}

// WarmUpProgress summarizes where an account sits on the warm-up ladder.
type WarmUpProgress struct {
	Enabled     bool   `json:"enabled"`
	Graduated   bool   `json:"graduated"`
	StageIndex  int    `json:"stageIndex"`
	StageCount  int    `json:"stageCount"`
	ElapsedDays int    `json:"elapsedDays"`
	DaysToNext  int    `json:"daysToNextStage"`
	Description string `json:"description"`
}
