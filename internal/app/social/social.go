// Package social is the user directory and friendship layer. The
// gamification engine consumes user existence from here; it never
// creates or mutates identity records itself.
package social

import (
	"fmt"
	"strings"

	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

// Service manages users and friendships.
type Service struct {
	db *sqlite.DB
}

// New creates the social service.
func New(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser registers a directory identity.
func (s *Service) CreateUser(username, displayName string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username required", domain.ErrInvalidArgument)
	}
	if displayName == "" {
		displayName = username
	}
	existing, err := s.db.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if existing != nil {
		return domain.User{}, fmt.Errorf("%w: username %q taken", domain.ErrInvalidState, username)
	}
	id, err := s.db.InsertUser(username, displayName)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	u, err := s.db.GetUser(id)
	if err != nil || u == nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return *u, nil
}

// GetUserByUsername looks up one identity.
func (s *Service) GetUserByUsername(username string) (domain.User, error) {
	u, err := s.db.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if u == nil {
		return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, username)
	}
	return *u, nil
}

// ListUsers returns all identities.
func (s *Service) ListUsers() ([]domain.User, error) {
	out, err := s.db.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}

// SearchUsers matches username or display name, excluding the searcher.
func (s *Service) SearchUsers(query string, excludeUserID int64) ([]domain.User, error) {
	out, err := s.db.SearchUsers(query, excludeUserID, 20)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return out, nil
}

// ─── Friendships ────────────────────────────────────────────────────────────

func pair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// RequestFriend opens a pending friendship from one user to another.
func (s *Service) RequestFriend(fromID, toID int64) error {
	if fromID == toID {
		return fmt.Errorf("%w: cannot friend yourself", domain.ErrInvalidArgument)
	}
	for _, id := range []int64{fromID, toID} {
		exists, err := s.db.UserExists(id)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if !exists {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
		}
	}

	low, high := pair(fromID, toID)
	existing, err := s.db.GetFriendship(low, high)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if existing != nil {
		switch existing.Status {
		case domain.FriendAccepted:
			return fmt.Errorf("%w: already friends", domain.ErrInvalidState)
		case domain.FriendBlocked:
			return fmt.Errorf("%w: friendship blocked", domain.ErrForbidden)
		default:
			return fmt.Errorf("%w: request already pending", domain.ErrInvalidState)
		}
	}
	if err := s.db.InsertFriendRequest(low, high, fromID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// RespondFriend resolves a pending request. Only the addressed side may
// respond; accept=false blocks the pair.
func (s *Service) RespondFriend(userID, otherID int64, accept bool) error {
	low, high := pair(userID, otherID)
	existing, err := s.db.GetFriendship(low, high)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if existing == nil || existing.Status != domain.FriendPending {
		return fmt.Errorf("%w: no pending friend request", domain.ErrNotFound)
	}
	if existing.RequestedBy == userID {
		return fmt.Errorf("%w: cannot respond to your own request", domain.ErrForbidden)
	}

	status := domain.FriendAccepted
	if !accept {
		status = domain.FriendBlocked
	}
	moved, err := s.db.SetFriendStatusIfPending(low, high, status)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	if !moved {
		return fmt.Errorf("%w: request no longer pending", domain.ErrInvalidState)
	}
	return nil
}

// Friends returns the accepted friends of the user.
func (s *Service) Friends(userID int64) ([]domain.User, error) {
	pairs, err := s.db.ListFriendships(userID, domain.FriendAccepted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	var out []domain.User
	for _, f := range pairs {
		u, err := s.db.GetUser(f.Other(userID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

// PendingRequests splits the user's pending pairs into incoming and
// outgoing sides.
func (s *Service) PendingRequests(userID int64) (incoming, outgoing []domain.User, err error) {
	pairs, err := s.db.ListFriendships(userID, domain.FriendPending)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	for _, f := range pairs {
		u, err := s.db.GetUser(f.Other(userID))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		if u == nil {
			continue
		}
		if f.RequestedBy == userID {
			outgoing = append(outgoing, *u)
		} else {
			incoming = append(incoming, *u)
		}
	}
	return incoming, outgoing, nil
}
