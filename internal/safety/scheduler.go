package safety

import (
	"math/rand"
	"sync"
	"time"

	"github.com/account-safety/internal/models"
)

// maxStressMultiplier caps how far consecutive failures can widen the delay
// window.
const maxStressMultiplier = 4

// Scheduler computes inter-action delays and tracks per-account batch state.
// Batch state is ephemeral by design: it lives in process memory and resets on
// restart. Recording, checking, and resetting are deliberately separate calls
// so the caller can sequence record -> check -> (break + reset) -> delay -> act.
type Scheduler struct {
	mu       sync.Mutex
	batches  map[string]*models.BatchState
	failures map[string]int
	rng      *rand.Rand
	clock    func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		batches:  make(map[string]*models.BatchState),
		failures: make(map[string]int),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:    time.Now,
	}
}

// NextDelay returns the wait before the account's next action: a uniform
// sample within the profile's delay bounds, or the fixed midpoint when delay
// randomization is disabled. Consecutive failures widen the window, capped at
// maxStressMultiplier, and a success resets it.
func (s *Scheduler) NextDelay(accountID string, profile *models.AccountSafetyProfile) time.Duration {
	minSec := profile.ActionDelays.MinDelaySeconds
	maxSec := profile.ActionDelays.MaxDelaySeconds
	if minSec <= 0 {
		minSec = DefaultMinDelaySeconds
	}
	if maxSec < minSec {
		maxSec = minSec
	}

	s.mu.Lock()
	multiplier := 1 << s.failures[accountID]
	if multiplier > maxStressMultiplier {
		multiplier = maxStressMultiplier
	}

	var seconds int
	if profile.SafetyFeatures.RandomizeDelays {
		seconds = minSec + s.rng.Intn(maxSec-minSec+1)
	} else {
		seconds = (minSec + maxSec) / 2
	}
	s.mu.Unlock()

	return time.Duration(seconds*multiplier) * time.Second
}

// RecordActionForBatch increments the account's consecutive-action counter.
// It enforces nothing; the caller checks ShouldTakeBatchBreak afterwards.
func (s *Scheduler) RecordActionForBatch(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.batches[accountID]
	if state == nil {
		state = &models.BatchState{}
		s.batches[accountID] = state
	}
	state.ConsecutiveActionsSinceBreak++
	state.LastActionAt = s.clock()
}

// ShouldTakeBatchBreak reports whether the account has run enough consecutive
// actions that a longer pause is due.
func (s *Scheduler) ShouldTakeBatchBreak(accountID string, profile *models.AccountSafetyProfile) bool {
	batchSize := profile.ActionDelays.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.batches[accountID]
	return state != nil && state.ConsecutiveActionsSinceBreak >= batchSize
}

// BreakDuration returns how long the batch break should last.
func (s *Scheduler) BreakDuration(profile *models.AccountSafetyProfile) time.Duration {
	pause := profile.ActionDelays.BatchPauseSeconds
	if pause <= 0 {
		pause = DefaultBatchPauseSeconds
	}
	return time.Duration(pause) * time.Second
}

// ResetBatchCounter zeroes the consecutive-action counter. Idempotent.
func (s *Scheduler) ResetBatchCounter(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state := s.batches[accountID]; state != nil {
		state.ConsecutiveActionsSinceBreak = 0
	}
}

// BatchSnapshot returns a copy of the account's current batch state.
func (s *Scheduler) BatchSnapshot(accountID string) models.BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state := s.batches[accountID]; state != nil {
		return *state
	}
	return models.BatchState{}
}

// RecordOutcome feeds the action result back into the stress tracking:
// failures widen subsequent delays, a success resets them.
func (s *Scheduler) RecordOutcome(accountID string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		s.failures[accountID] = 0
		return
	}
	if s.failures[accountID] < 8 {
		s.failures[accountID]++
	}
}

// ConsecutiveFailures returns the account's current failure streak.
func (s *Scheduler) ConsecutiveFailures(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[accountID]
}
