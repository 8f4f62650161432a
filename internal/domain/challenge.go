package domain

import "time"

// ─── Challenge Types ────────────────────────────────────────────────────────
// A challenge is a head-to-head point wager between two users, governed
// by a five-state lifecycle. Rows are created once and mutated only
// through guarded transitions; they are never deleted.

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "PENDING"
	ChallengeActive    ChallengeStatus = "ACTIVE"
	ChallengeCompleted ChallengeStatus = "COMPLETED"
	ChallengeDeclined  ChallengeStatus = "DECLINED"
	ChallengeExpired   ChallengeStatus = "EXPIRED"
)

// Terminal reports whether s permits no further transitions.
func (s ChallengeStatus) Terminal() bool {
	switch s {
	case ChallengeCompleted, ChallengeDeclined, ChallengeExpired:
		return true
	}
	return false
}

// Challenge is one head-to-head challenge row.
type Challenge struct {
	ID         string          `json:"challenge_id"`
	SenderID   int64           `json:"sender_user_id"`
	ReceiverID int64           `json:"receiver_user_id"`
	BasePoints int64           `json:"base_points"`
	Status     ChallengeStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// ReceiverReward is the points credited to the receiver on completion.
func (c Challenge) ReceiverReward() int64 { return 2 * c.BasePoints }

// SenderReward is the points credited to the sender on completion.
func (c Challenge) SenderReward() int64 { return c.BasePoints }
