package safety

import (
	"context"
	"fmt"

	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// Advisory codes returned by SafetyRecommendations.
const (
	RecommendationConsecutiveFailures = "CONSECUTIVE_FAILURES"
	RecommendationLowAcceptanceRate   = "LOW_ACCEPTANCE_RATE"
	RecommendationPendingBacklog      = "PENDING_INVITATION_BACKLOG"
	RecommendationNearDailyCeiling    = "NEAR_DAILY_CEILING"
	RecommendationWarmUpActive        = "WARM_UP_ACTIVE"
	RecommendationOutsideWorkingHours = "OUTSIDE_WORKING_HOURS"
)

// minSendsForAcceptanceSignal is how many connection requests must have gone
// out before the acceptance rate is treated as meaningful.
const minSendsForAcceptanceSignal = 10

// nearCeilingFraction is the share of the daily ceiling at which the
// near-ceiling advisory fires.
const nearCeilingFraction = 0.9

// SafetyRecommendations inspects the account's current usage and returns
// advisories for a human operator. Recommendations never block actions.
func (c *Controller) SafetyRecommendations(ctx context.Context, accountID string) ([]models.SafetyRecommendation, error) {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	today, err := c.ledger.TodayUsage(ctx, accountID)
	if err != nil {
		return nil, err
	}

	limits := ResolveLimits(profile, c.ladder, c.clock())
	recommendations := []models.SafetyRecommendation{}

	if fails := c.scheduler.ConsecutiveFailures(accountID); fails >= c.cfg.MaxConsecutiveFailures {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityCritical,
			Code:     RecommendationConsecutiveFailures,
			Message:  fmt.Sprintf("%d consecutive actions have failed; pause automation and check the account manually", fails),
		})
	}

	sends := today.Count(types.ActionConnectionRequest)
	if sends >= minSendsForAcceptanceSignal && today.AcceptanceRate < c.cfg.LowAcceptanceRate {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityWarning,
			Code:     RecommendationLowAcceptanceRate,
			Message: fmt.Sprintf("acceptance rate is %.0f%% over %d requests today; consider better targeting or fewer sends",
				today.AcceptanceRate*100, sends),
		})
	}

	if today.PendingInvitations >= c.cfg.PendingInvitationCeiling {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityWarning,
			Code:     RecommendationPendingBacklog,
			Message: fmt.Sprintf("%d invitations are pending; withdraw stale invitations before sending more",
				today.PendingInvitations),
		})
	}

	if limits.TotalDaily > 0 && float64(today.TotalActions) >= nearCeilingFraction*float64(limits.TotalDaily) {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityInfo,
			Code:     RecommendationNearDailyCeiling,
			Message: fmt.Sprintf("daily activity is at %d of %d actions; remaining headroom is low",
				today.TotalActions, limits.TotalDaily),
		})
	}

	if wh := profile.WorkingHours; wh != nil && !wh.Contains(c.clock().In(wh.Location())) {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityInfo,
			Code:     RecommendationOutsideWorkingHours,
			Message: fmt.Sprintf("current time is outside the configured activity window (%02d:00-%02d:00); activity now looks less human",
				wh.StartHour, wh.EndHour),
		})
	}

	if limits.WarmUpActive {
		recommendations = append(recommendations, models.SafetyRecommendation{
			Severity: types.SeverityInfo,
			Code:     RecommendationWarmUpActive,
			Message:  fmt.Sprintf("warm-up is active (stage %d); limits are reduced while the account ramps up", limits.WarmUpStageIdx+1),
		})
	}

	return recommendations, nil
}
