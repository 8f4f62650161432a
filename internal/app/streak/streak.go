// Package streak implements the daily streak state machine. Streaks
// change only at the daily maintenance boundary, never inside a
// request, and the roll is idempotent, so a retried or restarted
// trigger cannot double-count a day.
package streak

import (
	"fmt"
	"log"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/observability"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// DefaultThreshold is the daily point total that keeps a streak alive.
const DefaultThreshold = 100

// Tracker evaluates streaks once per business day.
type Tracker struct {
	db        *sqlite.DB
	clk       *clock.Clock
	threshold int64
}

// New creates a streak tracker. threshold <= 0 selects the default.
func New(db *sqlite.DB, clk *clock.Clock, threshold int64) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{db: db, clk: clk, threshold: threshold}
}

// RunDaily evaluates the completed prior business day for every user
// with a totals row and returns how many rows were rolled. Users whose
// row was already rolled to that day are skipped, so running the job
// twice for the same day is a no-op.
func (t *Tracker) RunDaily() (int, error) {
	evalDay := t.clk.Today().AddDays(-1)

	userIDs, err := t.db.ListTotalsUserIDs()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	rolled := 0
	for _, userID := range userIDs {
		changed, err := t.rollUser(userID, evalDay)
		if err != nil {
			return rolled, err
		}
		if changed {
			rolled++
			observability.StreakRolls.Inc()
		}
	}
	if rolled > 0 {
		log.Printf("[streak] rolled %d user(s) for %s", rolled, evalDay)
	}
	return rolled, nil
}

// rollUser applies the streak transition for one user:
//
//	points(evalDay) >= threshold, streak alive  -> streak + 1
//	points(evalDay) >= threshold, streak broken -> 1
//	points(evalDay) <  threshold                -> 0
//
// "Alive" means the last roll wrote the day before evalDay. The day's
// points are summed from the ledger itself, not the cached daily figure,
// so entries edited after midnight still score the right day.
func (t *Tracker) rollUser(userID int64, evalDay clock.Date) (bool, error) {
	totals, err := t.db.GetTotals(userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if totals == nil {
		return false, nil
	}
	if totals.LastStreakUpdateDate == evalDay.String() {
		return false, nil // already rolled for this day
	}

	dayPoints, err := t.db.SumPointsForDate(userID, evalDay)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	var next int
	switch {
	case dayPoints >= t.threshold && totals.LastStreakUpdateDate == evalDay.AddDays(-1).String():
		next = totals.Streak + 1
	case dayPoints >= t.threshold:
		next = 1
	default:
		next = 0
	}

	// Conditional write: a concurrent roll that already stamped evalDay
	// wins and this write becomes a no-op.
	changed, err := t.db.SetStreakIfNotRolled(userID, next, evalDay)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return changed, nil
}
