package safety

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/account-safety/internal/errors"
	"github.com/account-safety/internal/logging"
	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// ProfileStore is the persistence boundary for safety profiles. Implementations
// must return a configuration error (errors.NewAccountNotConfiguredError) when
// no profile exists, never an invented default.
type ProfileStore interface {
	Get(ctx context.Context, accountID string) (*models.AccountSafetyProfile, error)
	Save(ctx context.Context, profile *models.AccountSafetyProfile) error
}

// Decision is the action gate's answer. Allowed and the binding constraint are
// mutually exclusive: a denial always names the specific limit that bound.
// A denial is an expected outcome, not an error.
//
// RemainingThisWeek is RemainingUnlimited when the action has no weekly cap.
type Decision struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason"`
	BindingConstraint string `json:"bindingConstraint,omitempty"`
	RemainingToday    int    `json:"remainingToday"`
	RemainingThisWeek int    `json:"remainingThisWeek"`
}

// RemainingUnlimited marks a remaining-count field whose dimension carries no
// cap for the account.
const RemainingUnlimited = -1

// Binding constraint identifiers carried on denials.
const (
	ConstraintUnsupportedAction = "action_unsupported"
	ConstraintDailyTypeCap      = "daily_type_cap"
	ConstraintWeeklyTypeCap     = "weekly_type_cap"
	ConstraintDailyTotalCap     = "daily_total_cap"
)

// Controller is the account safety controller: the single entry point callers
// use to initialize accounts, gate actions, record outcomes, and read state.
type Controller struct {
	profiles  ProfileStore
	ledger    *UsageLedger
	scheduler *Scheduler
	cfg       *SafetyConfig
	ladder    []models.WarmUpStage
	logger    *logging.Logger
	clock     func() time.Time
}

// ControllerConfig holds the controller's dependencies.
type ControllerConfig struct {
	// Profiles is the profile store. Required.
	Profiles ProfileStore

	// Ledger is the usage ledger. Required.
	Ledger *UsageLedger

	// Scheduler is the delay/batch scheduler. Defaults to a new one.
	Scheduler *Scheduler

	// Safety holds the tunables. Defaults to NewSafetyConfig().
	Safety *SafetyConfig

	// WarmUpStages overrides the built-in ladder, for tests.
	WarmUpStages []models.WarmUpStage

	// Logger defaults to the global logger.
	Logger *logging.Logger

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewController creates a controller with the given configuration.
func NewController(cfg *ControllerConfig) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("usage ledger is required")
	}

	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = NewScheduler()
	}
	safetyCfg := cfg.Safety
	if safetyCfg == nil {
		safetyCfg = NewSafetyConfig()
	}
	ladder := cfg.WarmUpStages
	if ladder == nil {
		ladder = DefaultWarmUpStages()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Controller{
		profiles:  cfg.Profiles,
		ledger:    cfg.Ledger,
		scheduler: scheduler,
		cfg:       safetyCfg,
		ladder:    ladder,
		logger:    logger,
		clock:     clock,
	}, nil
}

// InitializeAccountInput holds the parameters for account initialization.
type InitializeAccountInput struct {
	AccountID       string            `json:"accountId"`
	AccountType     types.AccountType `json:"accountType"`
	ConnectionCount int               `json:"connectionCount"`
	AccountAgeDays  int               `json:"accountAgeDays"`
	SSIScore        *int              `json:"ssiScore,omitempty"`
	EnableWarmUp    bool              `json:"enableWarmUp"`
}

// InitializeAccount creates and stores a safety profile for an account,
// optionally seeded into warm-up. Unknown account types are kept as given but
// resolve against the free preset.
func (c *Controller) InitializeAccount(ctx context.Context, input *InitializeAccountInput) (*models.AccountSafetyProfile, error) {
	if input == nil {
		return nil, apperrors.NewInvalidParameterError("input", "is required")
	}
	if input.AccountID == "" {
		return nil, apperrors.NewInvalidParameterError("accountId", "must not be empty")
	}
	if input.ConnectionCount < 0 {
		return nil, apperrors.NewInvalidParameterError("connectionCount", "cannot be negative")
	}
	if input.AccountAgeDays < 0 {
		return nil, apperrors.NewInvalidParameterError("accountAgeDays", "cannot be negative")
	}
	if input.SSIScore != nil && (*input.SSIScore < 0 || *input.SSIScore > 100) {
		return nil, apperrors.NewInvalidParameterError("ssiScore", "must be between 0 and 100")
	}

	// Re-initializing would silently reset limits and warm-up progress.
	if _, err := c.profiles.Get(ctx, input.AccountID); err == nil {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("account already initialized: %s", input.AccountID))
	} else if !apperrors.IsConfigurationError(err) {
		return nil, err
	}

	accountType := input.AccountType
	if !accountType.Valid() {
		c.logger.WithField("accountType", string(accountType)).
			Warn("Unknown account type, falling back to free limits")
		accountType = types.AccountFree
	}

	now := c.clock().UTC()
	profile := &models.AccountSafetyProfile{
		AccountID:       input.AccountID,
		AccountType:     accountType,
		ConnectionCount: input.ConnectionCount,
		AccountAgeDays:  input.AccountAgeDays,
		SSIScore:        input.SSIScore,
		ActionDelays: models.ActionDelaySettings{
			MinDelaySeconds:   c.cfg.MinDelaySeconds,
			MaxDelaySeconds:   c.cfg.MaxDelaySeconds,
			BatchSize:         c.cfg.BatchSize,
			BatchPauseSeconds: c.cfg.BatchPauseSeconds,
		},
		SafetyFeatures: models.SafetyFeatures{
			RandomizeDelays:  true,
			DetectPatterns:   true,
			AutoPauseOnError: true,
		},
		Variations: models.VariationSettings{
			Policy: types.RotationSequential,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.EnableWarmUp {
		startedAt := now
		profile.WarmUp = models.WarmUpSettings{
			Enabled:   true,
			StartedAt: &startedAt,
		}
	}

	if err := c.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"accountId":   profile.AccountID,
		"accountType": string(profile.AccountType),
		"warmUp":      profile.WarmUp.Enabled,
	}).Info("Account safety profile initialized")

	return profile, nil
}

// GetProfile returns the stored profile for an account.
func (c *Controller) GetProfile(ctx context.Context, accountID string) (*models.AccountSafetyProfile, error) {
	return c.profiles.Get(ctx, accountID)
}

// EffectiveLimits resolves the account's current effective limits. Resolution
// is pure: warm-up stage placement is recomputed here, never stored back.
func (c *Controller) EffectiveLimits(ctx context.Context, accountID string) (EffectiveLimits, error) {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return EffectiveLimits{}, err
	}
	return ResolveLimits(profile, c.ladder, c.clock()), nil
}

// CanPerformAction decides whether the account may perform the action now.
// Checks run in fixed order and the first failing one binds: action supported
// for the tier, daily per-type cap, weekly per-type cap, then the overall
// daily ceiling. The ceiling check is last but still unconditional, so
// spreading many action types thin cannot bypass it.
func (c *Controller) CanPerformAction(ctx context.Context, accountID string, action types.ActionType) (*Decision, error) {
	if !action.Valid() {
		return nil, apperrors.NewInvalidActionTypeError(string(action))
	}

	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	limits := ResolveLimits(profile, c.ladder, c.clock())

	dailyCap := limits.DailyCap(action)
	if dailyCap <= 0 {
		return &Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("%s is not available for the %s tier", action, profile.AccountType),
			BindingConstraint: ConstraintUnsupportedAction,
		}, nil
	}

	today, err := c.ledger.TodayUsage(ctx, accountID)
	if err != nil {
		return nil, err
	}
	week, err := c.ledger.WeekUsage(ctx, accountID)
	if err != nil {
		return nil, err
	}

	usedToday := today.Count(action)
	if usedToday >= dailyCap {
		return &Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("daily %s limit reached (%d/%d)", action, usedToday, dailyCap),
			BindingConstraint: ConstraintDailyTypeCap,
		}, nil
	}

	weeklyCap := limits.WeeklyCap(action)
	usedThisWeek := week.Count(action)
	if weeklyCap > 0 && usedThisWeek >= weeklyCap {
		return &Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("weekly %s limit reached (%d/%d)", action, usedThisWeek, weeklyCap),
			BindingConstraint: ConstraintWeeklyTypeCap,
		}, nil
	}

	if limits.TotalDaily > 0 && today.TotalActions >= limits.TotalDaily {
		return &Decision{
			Allowed:           false,
			Reason:            fmt.Sprintf("daily action ceiling reached (%d/%d)", today.TotalActions, limits.TotalDaily),
			BindingConstraint: ConstraintDailyTotalCap,
		}, nil
	}

	remainingWeek := RemainingUnlimited
	if weeklyCap > 0 {
		remainingWeek = weeklyCap - usedThisWeek
	}

	return &Decision{
		Allowed:           true,
		Reason:            "within limits",
		RemainingToday:    dailyCap - usedToday,
		RemainingThisWeek: remainingWeek,
	}, nil
}

// RecordAction records an attempted action into the ledger and feeds the
// outcome into delay stress tracking. The account must be configured.
func (c *Controller) RecordAction(ctx context.Context, accountID string, action types.ActionType, success bool, actionErr string) error {
	if !action.Valid() {
		return apperrors.NewInvalidActionTypeError(string(action))
	}
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return err
	}

	if err := c.ledger.RecordAction(ctx, accountID, action, success, actionErr); err != nil {
		return err
	}
	c.scheduler.RecordOutcome(accountID, success)

	return nil
}

// RecordConnectionAccepted records an accepted connection request.
func (c *Controller) RecordConnectionAccepted(ctx context.Context, accountID string) error {
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return err
	}
	return c.ledger.RecordConnectionAccepted(ctx, accountID)
}

// UpdatePendingInvitations overwrites the account's pending-invitation gauge.
func (c *Controller) UpdatePendingInvitations(ctx context.Context, accountID string, count int) error {
	if count < 0 {
		return apperrors.NewInvalidParameterError("count", "cannot be negative")
	}
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return err
	}
	return c.ledger.UpdatePendingInvitations(ctx, accountID, count)
}

// TodayUsage returns the account's usage for the current day.
func (c *Controller) TodayUsage(ctx context.Context, accountID string) (*models.UsageCounters, error) {
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return c.ledger.TodayUsage(ctx, accountID)
}

// WeekUsage returns the account's usage for the current ISO week.
func (c *Controller) WeekUsage(ctx context.Context, accountID string) (*models.UsageCounters, error) {
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return c.ledger.WeekUsage(ctx, accountID)
}

// RecentActions returns the account's most recent log entries, newest first.
func (c *Controller) RecentActions(ctx context.Context, accountID string, limit int) ([]models.RecentActionLogEntry, error) {
	if _, err := c.profiles.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return c.ledger.RecentActions(ctx, accountID, limit)
}

// NextDelay returns the advisory wait before the account's next action. The
// controller never sleeps; honoring the delay is the caller's job.
func (c *Controller) NextDelay(ctx context.Context, accountID string) (time.Duration, error) {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return c.scheduler.NextDelay(accountID, profile), nil
}

// ShouldTakeBatchBreak reports whether a batch break is due for the account.
func (c *Controller) ShouldTakeBatchBreak(ctx context.Context, accountID string) (bool, time.Duration, error) {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return false, 0, err
	}
	due := c.scheduler.ShouldTakeBatchBreak(accountID, profile)
	return due, c.scheduler.BreakDuration(profile), nil
}

// RecordActionForBatch increments the account's consecutive-action counter.
func (c *Controller) RecordActionForBatch(accountID string) {
	c.scheduler.RecordActionForBatch(accountID)
}

// BatchState returns a copy of the account's in-process batch counters.
func (c *Controller) BatchState(accountID string) models.BatchState {
	return c.scheduler.BatchSnapshot(accountID)
}

// ResetBatchCounter zeroes the account's consecutive-action counter.
func (c *Controller) ResetBatchCounter(accountID string) {
	c.scheduler.ResetBatchCounter(accountID)
}

// SetWarmUpEnabled toggles warm-up for the account. Disabling keeps the
// bookkeeping; stage placement is recomputed from elapsed time, so re-enabling
// resumes wherever time now places the account.
func (c *Controller) SetWarmUpEnabled(ctx context.Context, accountID string, enabled bool) error {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return err
	}

	profile.WarmUp.Enabled = enabled
	if enabled && profile.WarmUp.StartedAt == nil {
		startedAt := c.clock().UTC()
		profile.WarmUp.StartedAt = &startedAt
	}
	profile.UpdatedAt = c.clock().UTC()

	if err := c.profiles.Save(ctx, profile); err != nil {
		return err
	}

	c.logger.WithFields(map[string]interface{}{
		"accountId": accountID,
		"enabled":   enabled,
	}).Info("Warm-up mode updated")
	return nil
}

// WarmUpProgress reports where the account sits on the warm-up ladder.
func (c *Controller) WarmUpProgress(ctx context.Context, accountID string) (*models.WarmUpProgress, error) {
	profile, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	progress := warmUpProgress(profile, c.ladder, c.clock())
	return &progress, nil
}
