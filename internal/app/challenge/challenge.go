// Package challenge implements the head-to-head challenge lifecycle:
// PENDING → ACTIVE → COMPLETED, with DECLINED and EXPIRED as the other
// terminal states. Every transition is a conditional storage write, so
// two requests racing over the same challenge cannot both succeed.
package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/observability"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// Service governs challenge creation, response, completion, and expiry.
type Service struct {
	db  *sqlite.DB
	clk *clock.Clock
}

// New creates the challenge service.
func New(db *sqlite.DB, clk *clock.Clock) *Service {
	return &Service{db: db, clk: clk}
}

// ─── Creation ───────────────────────────────────────────────────────────────

// Create opens a PENDING challenge from sender to receiver. At most one
// PENDING challenge may exist per ordered pair per business day. A zero
// expiresAt defaults to the next business midnight.
func (s *Service) Create(senderID, receiverID, basePoints int64, expiresAt time.Time) (domain.Challenge, error) {
	if senderID == receiverID {
		return domain.Challenge{}, fmt.Errorf("%w: cannot challenge yourself", domain.ErrInvalidArgument)
	}
	if basePoints <= 0 {
		return domain.Challenge{}, fmt.Errorf("%w: base points must be positive", domain.ErrInvalidArgument)
	}
	for _, id := range []int64{senderID, receiverID} {
		exists, err := s.db.UserExists(id)
		if err != nil {
			return domain.Challenge{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if !exists {
			return domain.Challenge{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
		}
	}

	now := s.clk.Now()
	today := s.clk.BusinessDate(now)
	dup, err := s.db.HasPendingForPair(senderID, receiverID, today)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if dup {
		return domain.Challenge{}, fmt.Errorf("%w: challenge already sent today", domain.ErrInvalidState)
	}

	if expiresAt.IsZero() {
		expiresAt = s.clk.NextMidnight(now)
	}
	c := domain.Challenge{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		BasePoints: basePoints,
		Status:     domain.ChallengePending,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}
	if err := s.db.InsertChallenge(c, today); err != nil {
		// The pending-pair unique index catches the race the pre-check
		// above cannot close.
		if errors.Is(err, domain.ErrInvalidState) {
			return domain.Challenge{}, err
		}
		return domain.Challenge{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	observability.ChallengeTransitions.WithLabelValues("create").Inc()
	return c, nil
}

// ─── Response ───────────────────────────────────────────────────────────────

// Accept moves a PENDING challenge to ACTIVE. Only the receiver may accept.
func (s *Service) Accept(challengeID string, actorID int64) (domain.Challenge, error) {
	return s.respond(challengeID, actorID, domain.ChallengeActive, "accept")
}

// Decline moves a PENDING challenge to DECLINED. Only the receiver may decline.
func (s *Service) Decline(challengeID string, actorID int64) (domain.Challenge, error) {
	return s.respond(challengeID, actorID, domain.ChallengeDeclined, "decline")
}

func (s *Service) respond(challengeID string, actorID int64, to domain.ChallengeStatus, event string) (domain.Challenge, error) {
	c, err := s.load(challengeID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if c.ReceiverID != actorID {
		return domain.Challenge{}, fmt.Errorf("%w: only the receiver may %s", domain.ErrForbidden, event)
	}

	moved, err := s.db.TransitionChallenge(challengeID, domain.ChallengePending, to)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if !moved {
		// Lost the race or the state was never PENDING.
		return domain.Challenge{}, invalidState(s.db, challengeID, event)
	}
	observability.ChallengeTransitions.WithLabelValues(event).Inc()
	c.Status = to
	return *c, nil
}

// ─── Completion ─────────────────────────────────────────────────────────────

// Complete moves an ACTIVE challenge to COMPLETED and pays out: the
// receiver earns 2×basePoints, the sender 1×basePoints, and both totals
// are recomputed. Transition, ledger entries, and recomputes commit in
// one transaction; a failed commit leaves no partial reward.
func (s *Service) Complete(challengeID string, actorID int64) (domain.Challenge, error) {
	c, err := s.load(challengeID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if c.ReceiverID != actorID {
		return domain.Challenge{}, fmt.Errorf("%w: only the receiver may complete", domain.ErrForbidden)
	}

	now := s.clk.Now()
	today := s.clk.BusinessDate(now)
	weekStart := s.clk.WeekStart(today)

	err = s.db.WithTx(func(tx *sqlite.Tx) error {
		moved, err := tx.TransitionChallenge(challengeID, domain.ChallengeActive, domain.ChallengeCompleted)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if !moved {
			// Re-read through the transaction: the pool has a single
			// connection and it is held right here.
			return invalidState(tx, challengeID, "complete")
		}
		rewards := []domain.LedgerEntry{
			{UserID: c.ReceiverID, Points: c.ReceiverReward(), Reason: domain.ReasonChallengeComplete, RefID: c.ID, OccurredAt: now},
			{UserID: c.SenderID, Points: c.SenderReward(), Reason: domain.ReasonChallengeRewardSender, RefID: c.ID, OccurredAt: now},
		}
		for _, e := range rewards {
			if _, err := tx.AppendEntry(e, today); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrStorage, err)
			}
		}
		for _, userID := range []int64{c.ReceiverID, c.SenderID} {
			if _, err := tx.RecomputeTotals(userID, today, weekStart); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrStorage, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}

	observability.ChallengeTransitions.WithLabelValues("complete").Inc()
	observability.LedgerEntries.WithLabelValues(string(domain.ReasonChallengeComplete)).Inc()
	observability.LedgerEntries.WithLabelValues(string(domain.ReasonChallengeRewardSender)).Inc()
	c.Status = domain.ChallengeCompleted
	return *c, nil
}

// ─── Expiry ─────────────────────────────────────────────────────────────────

// ExpirePending sweeps every PENDING challenge whose expiry has passed
// into EXPIRED and returns the count. Challenges already out of PENDING
// are skipped, so re-running the sweep changes nothing.
func (s *Service) ExpirePending() (int64, error) {
	n, err := s.db.ExpirePendingBefore(s.clk.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	observability.ChallengesExpired.Add(float64(n))
	return n, nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get returns one challenge.
func (s *Service) Get(challengeID string) (domain.Challenge, error) {
	c, err := s.load(challengeID)
	if err != nil {
		return domain.Challenge{}, err
	}
	return *c, nil
}

// List returns challenges involving the user. box is one of incoming,
// active, done, or all.
func (s *Service) List(userID int64, box string) ([]domain.Challenge, error) {
	out, err := s.db.ListChallengesForUser(userID, box)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Service) load(challengeID string) (*domain.Challenge, error) {
	c, err := s.db.GetChallenge(challengeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: challenge %s", domain.ErrNotFound, challengeID)
	}
	return c, nil
}

// challengeReader is satisfied by both *sqlite.DB and *sqlite.Tx, so a
// failed conditional write can be classified through whichever handle
// currently owns the connection.
type challengeReader interface {
	GetChallenge(id string) (*domain.Challenge, error)
}

// invalidState re-reads the row after a failed conditional write and
// reports the state that blocked the event.
func invalidState(r challengeReader, challengeID, event string) error {
	c, err := r.GetChallenge(challengeID)
	if err != nil || c == nil {
		return fmt.Errorf("%w: challenge %s", domain.ErrInvalidState, challengeID)
	}
	return fmt.Errorf("%w: cannot %s a %s challenge", domain.ErrInvalidState, event, c.Status)
}
