// Package points implements the points ledger and the totals
// aggregator. The ledger is append-only and is the source of truth for
// every point figure; the totals cache is derived from it, never the
// other way around.
package points

import (
	"fmt"
	"time"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/observability"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// Service records ledger entries and maintains the totals cache.
type Service struct {
	db  *sqlite.DB
	clk *clock.Clock
}

// New creates the points service.
func New(db *sqlite.DB, clk *clock.Clock) *Service {
	return &Service{db: db, clk: clk}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// Record appends one signed ledger entry for the user and recomputes the
// cached totals in the same transaction, so callers always observe a
// totals value consistent with the ledger at the time of their call.
func (s *Service) Record(userID, points int64, reason domain.Reason, refID string) (int64, domain.Totals, error) {
	if !domain.ValidReason(reason) {
		return 0, domain.Totals{}, fmt.Errorf("%w: unrecognized reason %q", domain.ErrInvalidArgument, reason)
	}
	exists, err := s.db.UserExists(userID)
	if err != nil {
		return 0, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if !exists {
		return 0, domain.Totals{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}

	now := s.clk.Now()
	entry := domain.LedgerEntry{
		UserID:     userID,
		Points:     points,
		Reason:     reason,
		RefID:      refID,
		OccurredAt: now,
	}

	var entryID int64
	var totals domain.Totals
	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		var err error
		entryID, err = tx.AppendEntry(entry, s.clk.BusinessDate(now))
		if err != nil {
			return err
		}
		totals, err = tx.RecomputeTotals(userID, s.clk.Today(), s.clk.WeekStart(s.clk.Today()))
		return err
	})
	if err != nil {
		return 0, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	observability.LedgerEntries.WithLabelValues(string(reason)).Inc()
	observability.Recomputes.Inc()
	return entryID, totals, nil
}

// EntriesForUser returns the user's ledger entries ordered by
// occurrence. from and to are optional bounds (inclusive from,
// exclusive to).
func (s *Service) EntriesForUser(userID int64, from, to *time.Time) ([]domain.LedgerEntry, error) {
	entries, err := s.db.EntriesForUser(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return entries, nil
}

// ─── Aggregator ─────────────────────────────────────────────────────────────

// Recompute re-derives daily/weekly/total from the full ledger, writes
// the cache row (preserving the streak fields), and returns it. Repeated
// calls with no new ledger entries yield identical sums.
func (s *Service) Recompute(userID int64) (domain.Totals, error) {
	today := s.clk.Today()
	var totals domain.Totals
	err := s.db.WithTx(func(tx *sqlite.Tx) error {
		var err error
		totals, err = tx.RecomputeTotals(userID, today, s.clk.WeekStart(today))
		return err
	})
	if err != nil {
		return domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	observability.Recomputes.Inc()
	return totals, nil
}

// GetTotals returns the cached row if present, otherwise initializes a
// zero row via one recompute.
func (s *Service) GetTotals(userID int64) (domain.Totals, error) {
	cached, err := s.db.GetTotals(userID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if cached != nil {
		return *cached, nil
	}
	return s.Recompute(userID)
}

// WeeklyHistogram returns the user's points for the 7 business days of
// the current week, Monday first.
func (s *Service) WeeklyHistogram(userID int64) ([7]int64, error) {
	days := s.clk.WeekDays(s.clk.Today())
	hist, err := s.db.HistogramForDays(userID, days)
	if err != nil {
		return hist, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return hist, nil
}
