package models

import (
	"time"

	"github.com/account-safety/internal/types"
)

// MessageVariationSet stores the rotation variants for one outreach message.
// Variant index 0 is the control (the original message text).
type MessageVariationSet struct {
	ID              string               `json:"id"`
	AccountID       string               `json:"accountId"`
	OriginalMessage string               `json:"originalMessage"`
	Policy          types.RotationPolicy `json:"policy"`
	Variants        []MessageVariant     `json:"variants"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// MessageVariant is one rotation candidate with its observed outcomes.
type MessageVariant struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	SentCount    int    `json:"sentCount"`
	OpenCount    int    `json:"openCount"`
	RepliedCount int    `json:"repliedCount"`
}

// TotalSent returns the sum of sends across all variants.
func (s *MessageVariationSet) TotalSent() int {
	total := 0
	for _, v := range s.Variants {
		total += v.SentCount
	}
	return total
}

// EveryVariantSent reports whether every variant has at least one send.
// Weighted rotation stays in its sequential cold-start mode until this holds.
func (s *MessageVariationSet) EveryVariantSent() bool {
	for _, v := range s.Variants {
		if v.SentCount == 0 {
			return false
		}
	}
	return len(s.Variants) > 0
}

// VariationStats is the computed-on-read view of one variant's performance.
type VariationStats struct {
	Index     int     `json:"index"`
	Text      string  `json:"text"`
	SentCount int     `json:"sentCount"`
	OpenRate  float64 `json:"openRate"`
	ReplyRate float64 `json:"replyRate"`
}
