package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/grunga-fit/grunga/internal/domain"
)

// ─── User Directory Operations ──────────────────────────────────────────────

// InsertUser creates a directory row and returns the new user id.
func (db *DB) InsertUser(username, displayName string) (int64, error) {
	res, err := db.db.Exec(`
		INSERT INTO users (username, display_name, created_at)
		VALUES (?, ?, ?)
	`, username, displayName, encodeTime(db.now()))
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// GetUser returns the user row, or nil if unknown.
func (db *DB) GetUser(userID int64) (*domain.User, error) {
	return scanUser(db.db.QueryRow(`
		SELECT user_id, username, display_name, created_at
		FROM users WHERE user_id = ?
	`, userID))
}

// GetUserByUsername returns the user row, or nil if unknown.
func (db *DB) GetUserByUsername(username string) (*domain.User, error) {
	return scanUser(db.db.QueryRow(`
		SELECT user_id, username, display_name, created_at
		FROM users WHERE username = ?
	`, username))
}

// UserExists reports whether the user id is known to the directory.
func (db *DB) UserExists(userID int64) (bool, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return n > 0, nil
}

// ListUsers returns all directory rows ordered by id.
func (db *DB) ListUsers() ([]domain.User, error) {
	rows, err := db.db.Query(`
		SELECT user_id, username, display_name, created_at FROM users ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// SearchUsers matches username or display name, excluding one user.
func (db *DB) SearchUsers(query string, excludeUserID int64, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.db.Query(`
		SELECT user_id, username, display_name, created_at
		FROM users
		WHERE (username LIKE ? OR display_name LIKE ?) AND user_id <> ?
		ORDER BY username LIMIT ?
	`, like, like, excludeUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = decodeTime(created)
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	var out []domain.User
	for rows.Next() {
		var u domain.User
		var created string
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = decodeTime(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ─── Friendship Operations ──────────────────────────────────────────────────
// One row per unordered pair, user_low < user_high.

// GetFriendship returns the pair row, or nil if none exists.
func (db *DB) GetFriendship(low, high int64) (*domain.Friendship, error) {
	var f domain.Friendship
	var status, created string
	err := db.db.QueryRow(`
		SELECT user_low, user_high, requested_by, status, created_at
		FROM friends WHERE user_low = ? AND user_high = ?
	`, low, high).Scan(&f.UserLow, &f.UserHigh, &f.RequestedBy, &status, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	f.Status = domain.FriendStatus(status)
	f.CreatedAt = decodeTime(created)
	return &f, nil
}

// InsertFriendRequest creates a pending pair row.
func (db *DB) InsertFriendRequest(low, high, requestedBy int64) error {
	_, err := db.db.Exec(`
		INSERT INTO friends (user_low, user_high, requested_by, status, created_at)
		VALUES (?, ?, ?, 'pending', ?)
	`, low, high, requestedBy, encodeTime(db.now()))
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// SetFriendStatusIfPending flips a pending pair to the given status.
// Returns false when the pair was not pending.
func (db *DB) SetFriendStatusIfPending(low, high int64, status domain.FriendStatus) (bool, error) {
	res, err := db.db.Exec(`
		UPDATE friends SET status = ?
		WHERE user_low = ? AND user_high = ? AND status = 'pending'
	`, string(status), low, high)
	if err != nil {
		return false, fmt.Errorf("set friend status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFriendships returns every pair row involving the user with the
// given status.
func (db *DB) ListFriendships(userID int64, status domain.FriendStatus) ([]domain.Friendship, error) {
	rows, err := db.db.Query(`
		SELECT user_low, user_high, requested_by, status, created_at
		FROM friends
		WHERE status = ? AND (user_low = ? OR user_high = ?)
	`, string(status), userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	defer rows.Close()

	var out []domain.Friendship
	for rows.Next() {
		var f domain.Friendship
		var st, created string
		if err := rows.Scan(&f.UserLow, &f.UserHigh, &f.RequestedBy, &st, &created); err != nil {
			return nil, err
		}
		f.Status = domain.FriendStatus(st)
		f.CreatedAt = decodeTime(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ─── Badge Operations ───────────────────────────────────────────────────────

// GetBadgeByCode returns the catalog row, or nil if unknown.
func (db *DB) GetBadgeByCode(code string) (*domain.Badge, error) {
	var b domain.Badge
	err := db.db.QueryRow(`
		SELECT badge_id, code, name, description FROM badges WHERE code = ?
	`, code).Scan(&b.ID, &b.Code, &b.Name, &b.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return &b, nil
}

// UnlockBadge records an unlock. Duplicate unlocks are ignored; returns
// true only when a new row was written.
func (db *DB) UnlockBadge(userID, badgeID int64) (bool, error) {
	res, err := db.db.Exec(`
		INSERT OR IGNORE INTO user_badges (user_id, badge_id, unlocked_at)
		VALUES (?, ?, ?)
	`, userID, badgeID, encodeTime(db.now()))
	if err != nil {
		return false, fmt.Errorf("unlock badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListBadgesForUser returns the full catalog with per-user unlock state.
func (db *DB) ListBadgesForUser(userID int64) ([]struct {
	Badge    domain.Badge
	Unlocked bool
}, error) {
	rows, err := db.db.Query(`
		SELECT b.badge_id, b.code, b.name, b.description,
		       ub.unlocked_at IS NOT NULL
		FROM badges b
		LEFT JOIN user_badges ub ON ub.badge_id = b.badge_id AND ub.user_id = ?
		ORDER BY b.badge_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	var out []struct {
		Badge    domain.Badge
		Unlocked bool
	}
	for rows.Next() {
		var r struct {
			Badge    domain.Badge
			Unlocked bool
		}
		if err := rows.Scan(&r.Badge.ID, &r.Badge.Code, &r.Badge.Name,
			&r.Badge.Description, &r.Unlocked); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WorkoutCount returns how many workouts the user has logged.
func (db *DB) WorkoutCount(userID int64) (int64, error) {
	var n int64
	err := db.db.QueryRow(`SELECT COUNT(*) FROM workouts WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
