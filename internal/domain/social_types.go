package domain

import "time"

// ─── User & Friend Types ────────────────────────────────────────────────────
// The engine treats the directory as a collaborator: it reads identities
// and friendship facts, it never owns point state for them.

// User is a directory identity row.
type User struct {
	ID          int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// FriendStatus is the state of a friendship pair.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
	FriendBlocked  FriendStatus = "blocked"
)

// Friendship is stored once per unordered pair, with UserLow < UserHigh.
// RequestedBy records which side initiated, so pending requests can be
// split into incoming and outgoing.
type Friendship struct {
	UserLow     int64        `json:"user_low"`
	UserHigh    int64        `json:"user_high"`
	RequestedBy int64        `json:"requested_by"`
	Status      FriendStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Other returns the counterpart of userID in the pair.
func (f Friendship) Other(userID int64) int64 {
	if f.UserLow == userID {
		return f.UserHigh
	}
	return f.UserLow
}

// ─── Badge Types ────────────────────────────────────────────────────────────

// Badge is a catalog entry describing an unlockable milestone.
type Badge struct {
	ID          int64  `json:"badge_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserBadge marks a badge a user has unlocked. Unlocks are
// duplicate-proof: at most one row per (user, badge).
type UserBadge struct {
	UserID     int64     `json:"user_id"`
	BadgeID    int64     `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
