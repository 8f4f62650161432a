package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so row operations
// compose into transactions without duplication.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// ─── Ledger Operations ──────────────────────────────────────────────────────

// AppendEntry appends one immutable ledger row and returns its id.
// businessDate is the business day occurredAt falls in, as computed by
// the Clock.
func (db *DB) AppendEntry(e domain.LedgerEntry, businessDate clock.Date) (int64, error) {
	return appendEntry(db.db, e, businessDate)
}

// AppendEntry appends a ledger row within the transaction.
func (t *Tx) AppendEntry(e domain.LedgerEntry, businessDate clock.Date) (int64, error) {
	return appendEntry(t.tx, e, businessDate)
}

func appendEntry(q querier, e domain.LedgerEntry, businessDate clock.Date) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO points_ledger (user_id, points, reason, ref_id, occurred_at, business_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.UserID, e.Points, string(e.Reason), e.RefID, encodeTime(e.OccurredAt), businessDate.String())
	if err != nil {
		return 0, fmt.Errorf("append ledger entry: %w", err)
	}
	return res.LastInsertId()
}

// EntriesForUser returns the user's ledger entries ordered by
// occurred_at ascending. from and to are optional bounds (inclusive
// from, exclusive to).
func (db *DB) EntriesForUser(userID int64, from, to *time.Time) ([]domain.LedgerEntry, error) {
	q := `SELECT id, user_id, points, reason, ref_id, occurred_at
	      FROM points_ledger WHERE user_id = ?`
	args := []any{userID}
	if from != nil {
		q += ` AND occurred_at >= ?`
		args = append(args, encodeTime(*from))
	}
	if to != nil {
		q += ` AND occurred_at < ?`
		args = append(args, encodeTime(*to))
	}
	q += ` ORDER BY occurred_at ASC, id ASC`

	rows, err := db.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var reason, occurred string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &reason, &e.RefID, &occurred); err != nil {
			return nil, err
		}
		e.Reason = domain.Reason(reason)
		e.OccurredAt = decodeTime(occurred)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumPointsForDate returns the signed point sum over one business day.
func (db *DB) SumPointsForDate(userID int64, day clock.Date) (int64, error) {
	return sumPointsForDate(db.db, userID, day)
}

// SumPointsForDate returns the day's point sum within the transaction.
func (t *Tx) SumPointsForDate(userID int64, day clock.Date) (int64, error) {
	return sumPointsForDate(t.tx, userID, day)
}

func sumPointsForDate(q querier, userID int64, day clock.Date) (int64, error) {
	var sum int64
	err := q.QueryRow(`
		SELECT COALESCE(SUM(points), 0) FROM points_ledger
		WHERE user_id = ? AND business_date = ?
	`, userID, day.String()).Scan(&sum)
	return sum, err
}

// HistogramForDays returns the point sum for each of the given business
// days, in order.
func (db *DB) HistogramForDays(userID int64, days [7]clock.Date) ([7]int64, error) {
	var hist [7]int64
	rows, err := db.db.Query(`
		SELECT business_date, COALESCE(SUM(points), 0)
		FROM points_ledger
		WHERE user_id = ? AND business_date >= ? AND business_date <= ?
		GROUP BY business_date
	`, userID, days[0].String(), days[6].String())
	if err != nil {
		return hist, fmt.Errorf("histogram: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]int64, 7)
	for rows.Next() {
		var date string
		var sum int64
		if err := rows.Scan(&date, &sum); err != nil {
			return hist, err
		}
		byDate[date] = sum
	}
	if err := rows.Err(); err != nil {
		return hist, err
	}
	for i, d := range days {
		hist[i] = byDate[d.String()]
	}
	return hist, nil
}
