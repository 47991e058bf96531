// Package types provides common type definitions for the account safety controller.
package types

// AccountType represents the LinkedIn subscription tier of an automated account
type AccountType string

const (
	// AccountFree represents a free LinkedIn account with the most conservative limits
	AccountFree AccountType = "free"
	// AccountPremium represents a LinkedIn Premium account
	AccountPremium AccountType = "premium"
	// AccountSalesNavigator represents a Sales Navigator account with the highest limits
	AccountSalesNavigator AccountType = "sales_navigator"
)

// Valid reports whether the account type is one of the known tiers.
func (t AccountType) Valid() bool {
	switch t {
	case AccountFree, AccountPremium, AccountSalesNavigator:
		return true
	}
	return false
}

// ActionType represents a discrete automatable LinkedIn operation
type ActionType string

const (
	// ActionConnectionRequest represents sending a connection invitation
	ActionConnectionRequest ActionType = "connection_request"
	// ActionMessage represents sending a direct message
	ActionMessage ActionType = "message"
	// ActionProfileView represents viewing a profile
	ActionProfileView ActionType = "profile_view"
	// ActionPostLike represents liking a post
	ActionPostLike ActionType = "post_like"
	// ActionEndorsement represents endorsing a skill
	ActionEndorsement ActionType = "endorsement"
	// ActionSearchPull represents pulling a page of search results
	ActionSearchPull ActionType = "search_pull"
)

// AllActionTypes lists every supported action type in a stable order.
var AllActionTypes = []ActionType{
	ActionConnectionRequest,
	ActionMessage,
	ActionProfileView,
	ActionPostLike,
	ActionEndorsement,
	ActionSearchPull,
}

// Valid reports whether the action type is one of the known operations.
func (a ActionType) Valid() bool {
	for _, known := range AllActionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// RotationPolicy represents how the next message variant is chosen
type RotationPolicy string

const (
	// RotationSequential round-robins through variants by total send count
	RotationSequential RotationPolicy = "sequential"
	// RotationRandom picks a variant uniformly at random
	RotationRandom RotationPolicy = "random"
	// RotationWeighted picks proportionally to observed reply rates
	RotationWeighted RotationPolicy = "weighted-by-performance"
)

// Valid reports whether the rotation policy is known.
func (p RotationPolicy) Valid() bool {
	switch p {
	case RotationSequential, RotationRandom, RotationWeighted:
		return true
	}
	return false
}

// VariationOutcome represents a reported outcome for a message variant
type VariationOutcome string

const (
	// OutcomeSent records that the variant was sent
	OutcomeSent VariationOutcome = "sent"
	// OutcomeOpened records that the message was opened
	OutcomeOpened VariationOutcome = "opened"
	// OutcomeReplied records that the recipient replied
	OutcomeReplied VariationOutcome = "replied"
)

// Valid reports whether the outcome is known.
func (o VariationOutcome) Valid() bool {
	switch o {
	case OutcomeSent, OutcomeOpened, OutcomeReplied:
		return true
	}
	return false
}

// RecommendationSeverity represents how urgent a safety advisory is
type RecommendationSeverity string

const (
	// SeverityInfo is an informational advisory
	SeverityInfo RecommendationSeverity = "info"
	// SeverityWarning suggests the operator should slow down
	SeverityWarning RecommendationSeverity = "warning"
	// SeverityCritical suggests automation should pause
	SeverityCritical RecommendationSeverity = "critical"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}
