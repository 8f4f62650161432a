package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
)

// ─── Totals Cache Operations ────────────────────────────────────────────────

// GetTotals returns the cached totals row, or nil if the user has none yet.
func (db *DB) GetTotals(userID int64) (*domain.Totals, error) {
	return getTotals(db.db, userID)
}

// GetTotals reads the totals row within the transaction.
func (t *Tx) GetTotals(userID int64) (*domain.Totals, error) {
	return getTotals(t.tx, userID)
}

func getTotals(q querier, userID int64) (*domain.Totals, error) {
	var tot domain.Totals
	var updated string
	err := q.QueryRow(`
		SELECT user_id, daily_points, weekly_points, total_points, streak,
		       last_streak_update_date, updated_at
		FROM points_totals WHERE user_id = ?
	`, userID).Scan(&tot.UserID, &tot.DailyPoints, &tot.WeeklyPoints,
		&tot.TotalPoints, &tot.Streak, &tot.LastStreakUpdateDate, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get totals: %w", err)
	}
	tot.UpdatedAt = decodeTime(updated)
	return &tot, nil
}

// RecomputeTotals re-derives daily/weekly/total from the full ledger and
// writes the cache row, preserving the streak fields. The derived sums
// are a pure function of the ledger at this point in the transaction, so
// concurrent recomputes serialize to whole-ledger snapshots rather than
// interleaving.
func (t *Tx) RecomputeTotals(userID int64, today, weekStart clock.Date) (domain.Totals, error) {
	weekEnd := weekStart.AddDays(7)
	var total, daily, weekly int64
	err := t.tx.QueryRow(`
		SELECT
			COALESCE(SUM(points), 0),
			COALESCE(SUM(CASE WHEN business_date = ? THEN points END), 0),
			COALESCE(SUM(CASE WHEN business_date >= ? AND business_date < ? THEN points END), 0)
		FROM points_ledger WHERE user_id = ?
	`, today.String(), weekStart.String(), weekEnd.String(), userID).
		Scan(&total, &daily, &weekly)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("recompute sums: %w", err)
	}

	_, err = t.tx.Exec(`
		INSERT INTO points_totals (user_id, daily_points, weekly_points, total_points, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			daily_points  = excluded.daily_points,
			weekly_points = excluded.weekly_points,
			total_points  = excluded.total_points,
			updated_at    = excluded.updated_at
	`, userID, daily, weekly, total, encodeTime(t.now()))
	if err != nil {
		return domain.Totals{}, fmt.Errorf("write totals: %w", err)
	}

	tot, err := getTotals(t.tx, userID)
	if err != nil {
		return domain.Totals{}, err
	}
	return *tot, nil
}

// ListTotalsUserIDs returns every user with a totals row, ordered by id.
// The streak roll iterates this set.
func (db *DB) ListTotalsUserIDs() ([]int64, error) {
	rows, err := db.db.Query(`SELECT user_id FROM points_totals ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list totals users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetStreakIfNotRolled writes the streak fields only if the row has not
// already been rolled to evaluatedDay. Returns false when another run
// got there first, which makes the daily roll idempotent per row.
func (db *DB) SetStreakIfNotRolled(userID int64, streak int, evaluatedDay clock.Date) (bool, error) {
	res, err := db.db.Exec(`
		UPDATE points_totals
		SET streak = ?, last_streak_update_date = ?, updated_at = ?
		WHERE user_id = ? AND last_streak_update_date <> ?
	`, streak, evaluatedDay.String(), encodeTime(db.now()), userID, evaluatedDay.String())
	if err != nil {
		return false, fmt.Errorf("set streak: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
