// Package domain contains the business types and sentinel errors. It
// imports nothing outside the standard library.
package domain

import "time"

// ─── Points Types ───────────────────────────────────────────────────────────

// Reason is the business cause of a ledger entry.
type Reason string

const (
	ReasonWorkout               Reason = "workout"
	ReasonWorkoutEdit           Reason = "workoutEdit"
	ReasonWorkoutDelete         Reason = "workoutDelete"
	ReasonChallengeComplete     Reason = "challengeComplete"
	ReasonChallengeRewardSender Reason = "challengeRewardSender"
	ReasonManualAdjustment      Reason = "manualAdjustment"
)

// ValidReason reports whether r is a recognized reason code.
func ValidReason(r Reason) bool {
	switch r {
	case ReasonWorkout, ReasonWorkoutEdit, ReasonWorkoutDelete,
		ReasonChallengeComplete, ReasonChallengeRewardSender,
		ReasonManualAdjustment:
		return true
	}
	return false
}

// LedgerEntry is one immutable row in the append-only points ledger.
// Corrections are new entries with compensating signed points; entries
// are never updated or deleted.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Points     int64     `json:"points"`
	Reason     Reason    `json:"reason"`
	RefID      string    `json:"ref_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Totals is the cached per-user points snapshot. It is always
// reproducible by summing ledger entries over the matching windows.
type Totals struct {
	UserID               int64     `json:"user_id"`
	DailyPoints          int64     `json:"daily_points"`
	WeeklyPoints         int64     `json:"weekly_points"`
	TotalPoints          int64     `json:"total_points"`
	Streak               int       `json:"streak"`
	LastStreakUpdateDate string    `json:"last_streak_update_date,omitempty"` // YYYY-MM-DD, business-local
	UpdatedAt            time.Time `json:"updated_at"`
}

// ─── Workout Types ──────────────────────────────────────────────────────────

// Workout is a single logged workout. Points are derived, never stored
// authoritatively here; the ledger is the source of truth.
type Workout struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	WorkoutType string    `json:"workout_type"`
	Sets        int       `json:"sets"`
	Reps        int       `json:"reps"`
	LoggedAt    time.Time `json:"logged_at"`
}

// WorkoutPoints is the scoring rule: sets × reps.
// Zero or negative sets/reps score nothing.
func WorkoutPoints(sets, reps int) int64 {
	if sets <= 0 || reps <= 0 {
		return 0
	}
	return int64(sets) * int64(reps)
}
