// Package badge unlocks milestone badges from gamification state.
// Unlocks are duplicate-proof at the storage layer, so evaluation can
// run after every recompute without handing out the same badge twice.
package badge

import (
	"fmt"
	"log"

	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/observability"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// Badge codes seeded by the schema.
const (
	CodeFirstWorkout = "first_workout"
	CodeClub100      = "club_100"
	CodeStreak7      = "streak_7"
	CodeChallenger   = "challenger"
)

// Service evaluates and records badge unlocks.
type Service struct {
	db *sqlite.DB
}

// New creates the badge service.
func New(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// Evaluate checks every milestone for the user and unlocks any newly
// earned badges. Returns the codes unlocked by this call.
func (s *Service) Evaluate(userID int64) ([]string, error) {
	totals, err := s.db.GetTotals(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if totals == nil {
		return nil, nil
	}

	workouts, err := s.db.WorkoutCount(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	completed, err := s.db.ListChallengesForUser(userID, "done")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	completedAsReceiver := false
	for _, c := range completed {
		if c.Status == domain.ChallengeCompleted && c.ReceiverID == userID {
			completedAsReceiver = true
			break
		}
	}

	candidates := []struct {
		code   string
		earned bool
	}{
		{CodeFirstWorkout, workouts > 0},
		{CodeClub100, totals.DailyPoints >= 100},
		{CodeStreak7, totals.Streak >= 7},
		{CodeChallenger, completedAsReceiver},
	}

	var unlocked []string
	for _, c := range candidates {
		if !c.earned {
			continue
		}
		fresh, err := s.unlock(userID, c.code)
		if err != nil {
			return unlocked, err
		}
		if fresh {
			unlocked = append(unlocked, c.code)
		}
	}
	return unlocked, nil
}

func (s *Service) unlock(userID int64, code string) (bool, error) {
	b, err := s.db.GetBadgeByCode(code)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if b == nil {
		return false, nil // catalog missing the code; nothing to unlock
	}
	fresh, err := s.db.UnlockBadge(userID, b.ID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if fresh {
		observability.BadgeUnlocks.WithLabelValues(code).Inc()
		log.Printf("[badge] user %d unlocked %s", userID, code)
	}
	return fresh, nil
}

// ListForUser returns the catalog with the user's unlock state.
func (s *Service) ListForUser(userID int64) ([]struct {
	Badge    domain.Badge
	Unlocked bool
}, error) {
	out, err := s.db.ListBadgesForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}
