// Package workout is the workout CRUD layer feeding the points ledger.
// Ledger history is never rewritten: an edit records a compensating
// delta entry and a delete records a negated entry, in the same
// transaction as the row change.
package workout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/observability"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// Service manages workouts and their ledger consequences.
type Service struct {
	db  *sqlite.DB
	clk *clock.Clock
}

// New creates the workout service.
func New(db *sqlite.DB, clk *clock.Clock) *Service {
	return &Service{db: db, clk: clk}
}

func validate(workoutType string, sets, reps int) error {
	if strings.TrimSpace(workoutType) == "" {
		return fmt.Errorf("%w: workout type required", domain.ErrInvalidArgument)
	}
	if sets <= 0 {
		return fmt.Errorf("%w: sets must be positive", domain.ErrInvalidArgument)
	}
	if reps <= 0 {
		return fmt.Errorf("%w: reps must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

// Create logs a workout worth sets × reps points. loggedAt zero means
// now. Returns the workout and the recomputed totals.
func (s *Service) Create(userID int64, workoutType string, sets, reps int, loggedAt time.Time) (domain.Workout, domain.Totals, error) {
	if err := validate(workoutType, sets, reps); err != nil {
		return domain.Workout{}, domain.Totals{}, err
	}
	exists, err := s.db.UserExists(userID)
	if err != nil {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if !exists {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}

	if loggedAt.IsZero() {
		loggedAt = s.clk.Now()
	} else {
		loggedAt = loggedAt.In(s.clk.Location())
	}
	w := domain.Workout{
		UserID:      userID,
		WorkoutType: workoutType,
		Sets:        sets,
		Reps:        reps,
		LoggedAt:    loggedAt,
	}

	today := s.clk.Today()
	var totals domain.Totals
	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		id, err := tx.InsertWorkout(w)
		if err != nil {
			return err
		}
		w.ID = id
		entry := domain.LedgerEntry{
			UserID:     userID,
			Points:     domain.WorkoutPoints(sets, reps),
			Reason:     domain.ReasonWorkout,
			RefID:      strconv.FormatInt(id, 10),
			OccurredAt: loggedAt,
		}
		if _, err := tx.AppendEntry(entry, s.clk.BusinessDate(loggedAt)); err != nil {
			return err
		}
		totals, err = tx.RecomputeTotals(userID, today, s.clk.WeekStart(today))
		return err
	})
	if err != nil {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	observability.LedgerEntries.WithLabelValues(string(domain.ReasonWorkout)).Inc()
	observability.Recomputes.Inc()
	return w, totals, nil
}

// Update rewrites a workout's type/sets/reps and records the point
// difference as a compensating workoutEdit entry dated to the original
// workout's day. An edit that changes nothing writes no ledger row.
func (s *Service) Update(userID, workoutID int64, workoutType string, sets, reps int) (domain.Workout, domain.Totals, error) {
	if err := validate(workoutType, sets, reps); err != nil {
		return domain.Workout{}, domain.Totals{}, err
	}
	old, err := s.db.GetWorkout(userID, workoutID)
	if err != nil {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if old == nil {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: workout %d", domain.ErrNotFound, workoutID)
	}

	updated := *old
	updated.WorkoutType = workoutType
	updated.Sets = sets
	updated.Reps = reps
	delta := domain.WorkoutPoints(sets, reps) - domain.WorkoutPoints(old.Sets, old.Reps)

	today := s.clk.Today()
	var totals domain.Totals
	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.UpdateWorkout(updated); err != nil {
			return err
		}
		if delta != 0 {
			entry := domain.LedgerEntry{
				UserID:     userID,
				Points:     delta,
				Reason:     domain.ReasonWorkoutEdit,
				RefID:      strconv.FormatInt(workoutID, 10),
				OccurredAt: old.LoggedAt,
			}
			if _, err := tx.AppendEntry(entry, s.clk.BusinessDate(old.LoggedAt)); err != nil {
				return err
			}
		}
		var err error
		totals, err = tx.RecomputeTotals(userID, today, s.clk.WeekStart(today))
		return err
	})
	if err != nil {
		return domain.Workout{}, domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if delta != 0 {
		observability.LedgerEntries.WithLabelValues(string(domain.ReasonWorkoutEdit)).Inc()
	}
	observability.Recomputes.Inc()
	return updated, totals, nil
}

// Delete removes a workout row and records a negated workoutDelete
// entry for its full point value, dated to the workout's day.
func (s *Service) Delete(userID, workoutID int64) (domain.Totals, error) {
	old, err := s.db.GetWorkout(userID, workoutID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if old == nil {
		return domain.Totals{}, fmt.Errorf("%w: workout %d", domain.ErrNotFound, workoutID)
	}

	today := s.clk.Today()
	var totals domain.Totals
	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.DeleteWorkout(userID, workoutID); err != nil {
			return err
		}
		entry := domain.LedgerEntry{
			UserID:     userID,
			Points:     -domain.WorkoutPoints(old.Sets, old.Reps),
			Reason:     domain.ReasonWorkoutDelete,
			RefID:      strconv.FormatInt(workoutID, 10),
			OccurredAt: old.LoggedAt,
		}
		if _, err := tx.AppendEntry(entry, s.clk.BusinessDate(old.LoggedAt)); err != nil {
			return err
		}
		var err error
		totals, err = tx.RecomputeTotals(userID, today, s.clk.WeekStart(today))
		return err
	})
	if err != nil {
		return domain.Totals{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	observability.LedgerEntries.WithLabelValues(string(domain.ReasonWorkoutDelete)).Inc()
	observability.Recomputes.Inc()
	return totals, nil
}

// List returns the user's workouts, newest first.
func (s *Service) List(userID int64, limit int) ([]domain.Workout, error) {
	out, err := s.db.ListWorkouts(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}
