package safety

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/account-safety/internal/models"
	"github.com/account-safety/internal/types"
)

// Default ledger configuration values.
const (
	// DefaultDayKeyTTL keeps a day bucket one extra day past its boundary so
	// in-flight readers never see an expired key for the current day.
	DefaultDayKeyTTL = 48 * time.Hour
	// DefaultWeekKeyTTL keeps a week bucket one extra week.
	DefaultWeekKeyTTL = 14 * 24 * time.Hour
)

// Redis key prefixes for usage tracking.
const (
	KeyPrefixUsage   = "usage:"
	KeyPrefixPending = "pending:"
	KeyPrefixActions = "actions:"
)

// Hash fields shared by day and week buckets beyond the per-action counters.
const (
	fieldTotal    = "total"
	fieldAccepted = "accepted"
)

// UsageLedger tracks per-account action usage in Redis, bucketed by calendar
// day and ISO week. Buckets are addressed by explicit time-keyed Redis keys,
// so day and week rollover needs no background job: a new day simply reads a
// fresh (empty) key. Redis executes each script atomically, which serializes
// same-account writes without any locking here.
type UsageLedger struct {
	redis     redis.Cmdable
	logWindow int
	dayTTL    time.Duration
	weekTTL   time.Duration
	clock     func() time.Time
}

// UsageLedgerConfig holds configuration for the ledger.
type UsageLedgerConfig struct {
	// Redis is the Redis client used for counters. Required.
	Redis redis.Cmdable

	// LogWindow bounds the recent action log per account. Default: 50.
	LogWindow int

	// DayKeyTTL is the TTL for day buckets. Default: 48h.
	DayKeyTTL time.Duration

	// WeekKeyTTL is the TTL for week buckets. Default: 336h.
	WeekKeyTTL time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Validate checks if the configuration is valid.
func (c *UsageLedgerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.LogWindow < 0 {
		return errors.New("log window cannot be negative")
	}
	return nil
}

// NewUsageLedger creates a new ledger with the given configuration.
func NewUsageLedger(cfg *UsageLedgerConfig) (*UsageLedger, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logWindow := cfg.LogWindow
	if logWindow == 0 {
		logWindow = DefaultRecentLogWindow
	}
	dayTTL := cfg.DayKeyTTL
	if dayTTL == 0 {
		dayTTL = DefaultDayKeyTTL
	}
	weekTTL := cfg.WeekKeyTTL
	if weekTTL == 0 {
		weekTTL = DefaultWeekKeyTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &UsageLedger{
		redis:     cfg.Redis,
		logWindow: logWindow,
		dayTTL:    dayTTL,
		weekTTL:   weekTTL,
		clock:     clock,
	}, nil
}

// dayKey returns the Redis key for the account's current day bucket.
func (l *UsageLedger) dayKey(accountID string, now time.Time) string {
	return fmt.Sprintf("%s%s:d:%s", KeyPrefixUsage, accountID, now.UTC().Format("2006-01-02"))
}

// weekKey returns the Redis key for the account's current ISO week bucket.
func (l *UsageLedger) weekKey(accountID string, now time.Time) string {
	year, week := now.UTC().ISOWeek()
	return fmt.Sprintf("%s%s:w:%d-W%02d", KeyPrefixUsage, accountID, year, week)
}

func (l *UsageLedger) pendingKey(accountID string) string {
	return KeyPrefixPending + accountID
}

func (l *UsageLedger) actionsKey(accountID string) string {
	return KeyPrefixActions + accountID
}

// recordActionScript increments the per-type counter and the running total in
// both the day and the week bucket, refreshes their TTLs, and appends the log
// entry, all in one atomic step so two concurrent recorders for the same
// account can never lose an increment.
var recordActionScript = redis.NewScript(`
	local dayKey = KEYS[1]
	local weekKey = KEYS[2]
	local logKey = KEYS[3]
	local field = ARGV[1]
	local dayTTL = tonumber(ARGV[2])
	local weekTTL = tonumber(ARGV[3])
	local entry = ARGV[4]
	local logWindow = tonumber(ARGV[5])

	redis.call('HINCRBY', dayKey, field, 1)
	redis.call('HINCRBY', dayKey, 'total', 1)
	redis.call('EXPIRE', dayKey, dayTTL)

	redis.call('HINCRBY', weekKey, field, 1)
	redis.call('HINCRBY', weekKey, 'total', 1)
	redis.call('EXPIRE', weekKey, weekTTL)

	redis.call('LPUSH', logKey, entry)
	redis.call('LTRIM', logKey, 0, logWindow - 1)

	return redis.call('HGET', dayKey, field)
`)

// RecordAction records one attempted action for the account. The counters
// increment regardless of success, because a failed attempt still produced
// platform-visible activity.
func (l *UsageLedger) RecordAction(ctx context.Context, accountID string, action types.ActionType, success bool, actionErr string) error {
	if !action.Valid() {
		return fmt.Errorf("unknown action type: %s", action)
	}

	now := l.clock()
	entry := models.RecentActionLogEntry{
		ActionType: action,
		Success:    success,
		Error:      actionErr,
		Timestamp:  now.UTC(),
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}

	keys := []string{l.dayKey(accountID, now), l.weekKey(accountID, now), l.actionsKey(accountID)}
	err = recordActionScript.Run(ctx, l.redis, keys,
		string(action),
		int(l.dayTTL.Seconds()),
		int(l.weekTTL.Seconds()),
		string(encoded),
		l.logWindow,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}

	return nil
}

// acceptedScript increments the accepted counter in both buckets atomically.
var acceptedScript = redis.NewScript(`
	local dayKey = KEYS[1]
	local weekKey = KEYS[2]
	local dayTTL = tonumber(ARGV[1])
	local weekTTL = tonumber(ARGV[2])

	redis.call('HINCRBY', dayKey, 'accepted', 1)
	redis.call('EXPIRE', dayKey, dayTTL)
	redis.call('HINCRBY', weekKey, 'accepted', 1)
	redis.call('EXPIRE', weekKey, weekTTL)

	return redis.call('HGET', dayKey, 'accepted')
`)

// RecordConnectionAccepted records that a previously sent connection request
// was accepted. The acceptance rate itself is derived on read.
func (l *UsageLedger) RecordConnectionAccepted(ctx context.Context, accountID string) error {
	now := l.clock()
	keys := []string{l.dayKey(accountID, now), l.weekKey(accountID, now)}
	err := acceptedScript.Run(ctx, l.redis, keys,
		int(l.dayTTL.Seconds()),
		int(l.weekTTL.Seconds()),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to record acceptance: %w", err)
	}
	return nil
}

// UpdatePendingInvitations overwrites the pending-invitation gauge. It is an
// external signal: LinkedIn caps total pending invitations independently of
// daily send volume.
func (l *UsageLedger) UpdatePendingInvitations(ctx context.Context, accountID string, count int) error {
	if count < 0 {
		return fmt.Errorf("pending invitation count cannot be negative: %d", count)
	}
	if err := l.redis.Set(ctx, l.pendingKey(accountID), count, 0).Err(); err != nil {
		return fmt.Errorf("failed to update pending invitations: %w", err)
	}
	return nil
}

// TodayUsage returns the account's counters for the current calendar day.
// A new account (or a fresh day) yields zeroed counters, never an error.
func (l *UsageLedger) TodayUsage(ctx context.Context, accountID string) (*models.UsageCounters, error) {
	now := l.clock()
	return l.readBucket(ctx, accountID, l.dayKey(accountID, now))
}

// WeekUsage returns the account's counters for the current ISO week.
func (l *UsageLedger) WeekUsage(ctx context.Context, accountID string) (*models.UsageCounters, error) {
	now := l.clock()
	return l.readBucket(ctx, accountID, l.weekKey(accountID, now))
}

// readBucket loads one usage bucket plus the pending gauge. Missing keys read
// as zero.
func (l *UsageLedger) readBucket(ctx context.Context, accountID, bucketKey string) (*models.UsageCounters, error) {
	pipe := l.redis.Pipeline()
	hashCmd := pipe.HGetAll(ctx, bucketKey)
	pendingCmd := pipe.Get(ctx, l.pendingKey(accountID))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read usage bucket: %w", err)
	}

	raw, err := hashCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read usage bucket: %w", err)
	}

	counters := &models.UsageCounters{
		AccountID: accountID,
		BucketKey: bucketKey,
		Actions:   make(map[types.ActionType]int, len(types.AllActionTypes)),
	}
	for field, value := range raw {
		n := parseCount(value)
		switch field {
		case fieldTotal:
			counters.TotalActions = n
		case fieldAccepted:
			counters.ConnectionsAccepted = n
		default:
			counters.Actions[types.ActionType(field)] = n
		}
	}

	if pending, err := pendingCmd.Int(); err == nil {
		counters.PendingInvitations = pending
	}

	sent := counters.Count(types.ActionConnectionRequest)
	if sent > 0 {
		counters.AcceptanceRate = float64(counters.ConnectionsAccepted) / float64(sent)
	}

	return counters, nil
}

// RecentActions returns the most recent log entries, newest first.
func (l *UsageLedger) RecentActions(ctx context.Context, accountID string, limit int) ([]models.RecentActionLogEntry, error) {
	if limit <= 0 || limit > l.logWindow {
		limit = l.logWindow
	}

	raw, err := l.redis.LRange(ctx, l.actionsKey(accountID), 0, int64(limit-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read action log: %w", err)
	}

	entries := make([]models.RecentActionLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.RecentActionLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// Skip malformed entries instead of failing the whole read.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LogWindow returns the configured recent-log bound.
func (l *UsageLedger) LogWindow() int {
	return l.logWindow
}

// parseCount parses a counter value, returning 0 on error.
func parseCount(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
