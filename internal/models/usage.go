package models

import (
	"time"

	"github.com/account-safety/internal/types"
)

// UsageCounters holds the per-account counters for one time bucket (a calendar
// day or an ISO week). A fresh bucket starts zeroed; buckets are never merged
// backward across boundaries.
type UsageCounters struct {
	AccountID           string                   `json:"accountId"`
	BucketKey           string                   `json:"bucketKey"`
	Actions             map[types.ActionType]int `json:"actions"`
	TotalActions        int                      `json:"totalActions"`
	ConnectionsAccepted int                      `json:"connectionsAccepted"`
	PendingInvitations  int                      `json:"pendingInvitations"`
	AcceptanceRate      float64                  `json:"acceptanceRate"`
}

// Count returns the counter for the given action type, zero when absent.
func (u *UsageCounters) Count(action types.ActionType) int {
	if u.Actions == nil {
		return 0
	}
	return u.Actions[action]
}

// RecentActionLogEntry is one row of the bounded per-account action log.
// The log is diagnostic; gating never reads past the recency window.
type RecentActionLogEntry struct {
	ActionType types.ActionType `json:"actionType"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// BatchState is the ephemeral per-account pacing state. It lives in process
// memory only and resets on restart or when a batch break is taken.
type BatchState struct {
	ConsecutiveActionsSinceBreak int       `json:"consecutiveActionsSinceBreak"`
	LastActionAt                 time.Time `json:"lastActionAt"`
}

// SafetyRecommendation is a non-binding advisory for a human operator. It
// never blocks an action; hard caps are enforced only by the action gate.
type SafetyRecommendation struct {
	Severity types.RecommendationSeverity `json:"severity"`
	Code     string                       `json:"code"`
	Message  string                       `json:"message"`
}
