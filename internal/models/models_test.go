package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/account-safety/internal/types"
)

func TestWorkingHoursContains(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2026, 3, 10, hour, 30, 0, 0, time.UTC)
	}

	t.Run("daytime window", func(t *testing.T) {
		w := WorkingHours{StartHour: 9, EndHour: 17}

		assert.False(t, w.Contains(at(8)))
		assert.True(t, w.Contains(at(9)))
		assert.True(t, w.Contains(at(16)))
		assert.False(t, w.Contains(at(17)))
		assert.False(t, w.Contains(at(23)))
	})

	t.Run("window wrapping midnight", func(t *testing.T) {
		w := WorkingHours{StartHour: 22, EndHour: 6}

		assert.True(t, w.Contains(at(23)))
		assert.True(t, w.Contains(at(0)))
		assert.True(t, w.Contains(at(5)))
		assert.False(t, w.Contains(at(6)))
		assert.False(t, w.Contains(at(12)))
	})
}

func TestWorkingHoursLocation(t *testing.T) {
	assert.Equal(t, time.UTC, WorkingHours{}.Location())
	assert.Equal(t, time.UTC, WorkingHours{Timezone: "Not/AZone"}.Location())

	loc := WorkingHours{Timezone: "America/New_York"}.Location()
	assert.Equal(t, "America/New_York", loc.String())
}

func TestWarmUpStageContains(t *testing.T) {
	stage := WarmUpStage{DayRangeStart: 4, DayRangeEnd: 7}

	assert.False(t, stage.Contains(3))
	assert.True(t, stage.Contains(4))
	assert.True(t, stage.Contains(7))
	assert.False(t, stage.Contains(8))
}

func TestMessageVariationSetCounters(t *testing.T) {
	set := &MessageVariationSet{
		Variants: []MessageVariant{
			{Index: 0, SentCount: 3},
			{Index: 1, SentCount: 2},
			{Index: 2, SentCount: 0},
		},
	}

	assert.Equal(t, 5, set.TotalSent())
	assert.False(t, set.EveryVariantSent())

	set.Variants[2].SentCount = 1
	assert.True(t, set.EveryVariantSent())

	empty := &MessageVariationSet{}
	assert.Equal(t, 0, empty.TotalSent())
	assert.False(t, empty.EveryVariantSent())
}

func TestUsageCountersCount(t *testing.T) {
	var zero UsageCounters
	assert.Equal(t, 0, zero.Count(types.ActionMessage))

	usage := UsageCounters{Actions: map[types.ActionType]int{
		types.ActionConnectionRequest: 4,
	}}
	assert.Equal(t, 4, usage.Count(types.ActionConnectionRequest))
	assert.Equal(t, 0, usage.Count(types.ActionMessage))
}
