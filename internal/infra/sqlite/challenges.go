package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
)

// ─── Challenge Operations ───────────────────────────────────────────────────

// InsertChallenge creates a challenge row. createdDate is the business
// day of creation; the partial unique index on PENDING rows rejects a
// second pending challenge for the same ordered pair and day, reported
// as ErrInvalidState.
func (db *DB) InsertChallenge(c domain.Challenge, createdDate clock.Date) error {
	_, err := db.db.Exec(`
		INSERT INTO challenges (challenge_id, sender_user_id, receiver_user_id,
		                        base_points, status, created_at, created_date, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SenderID, c.ReceiverID, c.BasePoints, string(c.Status),
		encodeTime(c.CreatedAt), createdDate.String(), encodeTime(c.ExpiresAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: challenge already sent today", domain.ErrInvalidState)
		}
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// GetChallenge returns the challenge row, or nil if unknown.
func (db *DB) GetChallenge(id string) (*domain.Challenge, error) {
	return getChallenge(db.db, id)
}

// GetChallenge reads a challenge row within the transaction.
func (t *Tx) GetChallenge(id string) (*domain.Challenge, error) {
	return getChallenge(t.tx, id)
}

func getChallenge(q querier, id string) (*domain.Challenge, error) {
	var c domain.Challenge
	var status, created, expires string
	err := q.QueryRow(`
		SELECT challenge_id, sender_user_id, receiver_user_id, base_points,
		       status, created_at, expires_at
		FROM challenges WHERE challenge_id = ?
	`, id).Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.BasePoints,
		&status, &created, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	c.Status = domain.ChallengeStatus(status)
	c.CreatedAt = decodeTime(created)
	c.ExpiresAt = decodeTime(expires)
	return &c, nil
}

// HasPendingForPair reports whether a PENDING challenge from sender to
// receiver already exists for the given business day.
func (db *DB) HasPendingForPair(senderID, receiverID int64, day clock.Date) (bool, error) {
	var n int
	err := db.db.QueryRow(`
		SELECT COUNT(*) FROM challenges
		WHERE sender_user_id = ? AND receiver_user_id = ?
		  AND status = 'PENDING' AND created_date = ?
	`, senderID, receiverID, day.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("pending pair check: %w", err)
	}
	return n > 0, nil
}

// TransitionChallenge moves the challenge from one status to another
// only if its current status still matches. Returns false when the row
// was in a different state (or gone); the caller re-reads to classify.
func (db *DB) TransitionChallenge(id string, from, to domain.ChallengeStatus) (bool, error) {
	return transitionChallenge(db.db, id, from, to)
}

// TransitionChallenge performs the conditional status write within the
// transaction.
func (t *Tx) TransitionChallenge(id string, from, to domain.ChallengeStatus) (bool, error) {
	return transitionChallenge(t.tx, id, from, to)
}

func transitionChallenge(q querier, id string, from, to domain.ChallengeStatus) (bool, error) {
	res, err := q.Exec(`
		UPDATE challenges SET status = ?
		WHERE challenge_id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("transition challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpirePendingBefore moves every PENDING challenge whose expiry has
// passed to EXPIRED and returns how many were moved. A challenge already
// out of PENDING is simply not matched, so re-running is safe.
func (db *DB) ExpirePendingBefore(now time.Time) (int64, error) {
	res, err := db.db.Exec(`
		UPDATE challenges SET status = 'EXPIRED'
		WHERE status = 'PENDING' AND expires_at <= ?
	`, encodeTime(now))
	if err != nil {
		return 0, fmt.Errorf("expire pending: %w", err)
	}
	return res.RowsAffected()
}

// ListChallengesForUser returns challenges involving the user, newest
// first. box filters the view: incoming (pending/active addressed to the
// user), active, done (terminal), or all.
func (db *DB) ListChallengesForUser(userID int64, box string) ([]domain.Challenge, error) {
	q := `SELECT challenge_id, sender_user_id, receiver_user_id, base_points,
	             status, created_at, expires_at
	      FROM challenges WHERE `
	var args []any
	switch box {
	case "incoming":
		q += `receiver_user_id = ? AND status IN ('PENDING', 'ACTIVE')`
		args = []any{userID}
	case "active":
		q += `(sender_user_id = ? OR receiver_user_id = ?) AND status = 'ACTIVE'`
		args = []any{userID, userID}
	case "done":
		q += `(sender_user_id = ? OR receiver_user_id = ?) AND status IN ('COMPLETED', 'DECLINED', 'EXPIRED')`
		args = []any{userID, userID}
	default:
		q += `(sender_user_id = ? OR receiver_user_id = ?)`
		args = []any{userID, userID}
	}
	q += ` ORDER BY created_at DESC, challenge_id`

	rows, err := db.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		var c domain.Challenge
		var status, created, expires string
		if err := rows.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.BasePoints,
			&status, &created, &expires); err != nil {
			return nil, err
		}
		c.Status = domain.ChallengeStatus(status)
		c.CreatedAt = decodeTime(created)
		c.ExpiresAt = decodeTime(expires)
		out = append(out, c)
	}
	return out, rows.Err()
}
