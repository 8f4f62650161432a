package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grunga-fit/grunga/internal/domain"
)

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s", domain.ErrInvalidArgument, name)
	}
	return v, nil
}

// queryTime parses an optional RFC3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: bad %s", domain.ErrInvalidArgument, name)
	}
	return &t, nil
}

// ─── Directory Handlers ─────────────────────────────────────────────────────

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.social.ListUsers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	u, err := s.social.CreateUser(req.Username, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.social.GetUserByUsername(chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	exclude, _ := strconv.ParseInt(r.URL.Query().Get("exclude"), 10, 64)
	users, err := s.social.SearchUsers(r.URL.Query().Get("q"), exclude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ─── Workout & Points Handlers ──────────────────────────────────────────────

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	workouts, err := s.workouts.List(userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		WorkoutType string `json:"workout_type"`
		Sets        int    `json:"sets"`
		Reps        int    `json:"reps"`
		LoggedAt    string `json:"logged_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	var loggedAt time.Time
	if req.LoggedAt != "" {
		loggedAt, err = time.Parse(time.RFC3339, req.LoggedAt)
		if err != nil {
			writeError(w, fmt.Errorf("%w: bad logged_at", domain.ErrInvalidArgument))
			return
		}
	}
	wo, totals, err := s.workouts.Create(userID, req.WorkoutType, req.Sets, req.Reps, loggedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	s.evaluateBadges(userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"workout": wo,
		"totals":  totals,
	})
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	workoutID, err := pathInt64(r, "workoutID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		WorkoutType string `json:"workout_type"`
		Sets        int    `json:"sets"`
		Reps        int    `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	wo, totals, err := s.workouts.Update(userID, workoutID, req.WorkoutType, req.Sets, req.Reps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workout": wo,
		"totals":  totals,
	})
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	workoutID, err := pathInt64(r, "workoutID")
	if err != nil {
		writeError(w, err)
		return
	}
	totals, err := s.workouts.Delete(userID, workoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	totals, err := s.points.GetTotals(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	hist, err := s.points.WeeklyHistogram(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_points":  totals.TotalPoints,
		"weekly_points": totals.WeeklyPoints,
		"daily_points":  totals.DailyPoints,
		"streak":        totals.Streak,
		"hist":          hist,
	})
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.points.EntriesForUser(userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ─── Challenge Handlers ─────────────────────────────────────────────────────

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderUserID   int64  `json:"sender_user_id"`
		ReceiverUserID int64  `json:"receiver_user_id"`
		BasePoints     int64  `json:"base_points"`
		ExpiresAt      string `json:"expires_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	var expiresAt time.Time
	if req.ExpiresAt != "" {
		var err error
		expiresAt, err = time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, fmt.Errorf("%w: bad expires_at", domain.ErrInvalidArgument))
			return
		}
	}
	c, err := s.challenges.Create(req.SenderUserID, req.ReceiverUserID, req.BasePoints, expiresAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.challenges.Get(chi.URLParam(r, "challengeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type challengeActionRequest struct {
	ActorUserID int64 `json:"actor_user_id"`
}

func decodeActor(r *http.Request) (int64, error) {
	var req challengeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument)
	}
	return req.ActorUserID, nil
}

func (s *Server) handleAcceptChallenge(w http.ResponseWriter, r *http.Request) {
	actor, err := decodeActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.challenges.Accept(chi.URLParam(r, "challengeID"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeclineChallenge(w http.ResponseWriter, r *http.Request) {
	actor, err := decodeActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.challenges.Decline(chi.URLParam(r, "challengeID"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	actor, err := decodeActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := s.challenges.Complete(chi.URLParam(r, "challengeID"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	s.evaluateBadges(c.ReceiverID)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	box := r.URL.Query().Get("box")
	out, err := s.challenges.List(userID, box)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Friend Handlers ────────────────────────────────────────────────────────

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	friends, err := s.social.Friends(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (s *Server) handlePendingFriends(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	incoming, outgoing, err := s.social.PendingRequests(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromUserID int64 `json:"from_user_id"`
		ToUserID   int64 `json:"to_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	if err := s.social.RequestFriend(req.FromUserID, req.ToUserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (s *Server) handleFriendRespond(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64 `json:"user_id"`
		OtherUserID int64 `json:"other_user_id"`
		Accept      bool  `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: bad body", domain.ErrInvalidArgument))
		return
	}
	if err := s.social.RespondFriend(req.UserID, req.OtherUserID, req.Accept); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ─── Badge Handlers ─────────────────────────────────────────────────────────

func (s *Server) handleListUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.badges.ListForUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	type badgeResponse struct {
		BadgeID     int64  `json:"badge_id"`
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Unlocked    bool   `json:"unlocked"`
	}
	out := make([]badgeResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, badgeResponse{
			BadgeID:     r.Badge.ID,
			Code:        r.Badge.Code,
			Name:        r.Badge.Name,
			Description: r.Badge.Description,
			Unlocked:    r.Unlocked,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// evaluateBadges runs badge evaluation best-effort after a scoring
// event; a failure never blocks the response, but it is logged.
func (s *Server) evaluateBadges(userID int64) {
	if s.badges == nil {
		return
	}
	if _, err := s.badges.Evaluate(userID); err != nil {
		log.Printf("[api] badge evaluation for user %d failed: %v", userID, err)
	}
}
