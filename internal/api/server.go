// Package api provides the HTTP surface over the gamification engine.
// It maps requests to engine operations and engine errors to status
// codes; no business rule lives here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grunga-fit/grunga/internal/app/badge"
	"github.com/grunga-fit/grunga/internal/app/challenge"
	"github.com/grunga-fit/grunga/internal/app/points"
	"github.com/grunga-fit/grunga/internal/app/social"
	"github.com/grunga-fit/grunga/internal/app/workout"
	"github.com/grunga-fit/grunga/internal/domain"
)

// Server is the Grunga HTTP API server.
type Server struct {
	points     *points.Service
	workouts   *workout.Service
	challenges *challenge.Service
	social     *social.Service
	badges     *badge.Service

	metricsEnabled bool
}

// NewServer creates the API server over the engine services.
func NewServer(p *points.Service, w *workout.Service, c *challenge.Service, s *social.Service, b *badge.Service) *Server {
	return &Server{points: p, workouts: w, challenges: c, social: s, badges: b}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Directory
		r.Get("/users", s.handleListUsers)
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{username}", s.handleGetUser)
		r.Get("/users/search", s.handleSearchUsers)

		// Workouts & points
		r.Get("/users/{userID}/workouts", s.handleListWorkouts)
		r.Post("/users/{userID}/workouts", s.handleCreateWorkout)
		r.Patch("/users/{userID}/workouts/{workoutID}", s.handleUpdateWorkout)
		r.Delete("/users/{userID}/workouts/{workoutID}", s.handleDeleteWorkout)
		r.Get("/users/{userID}/points", s.handleGetPoints)
		r.Get("/users/{userID}/ledger", s.handleGetLedger)

		// Challenges
		r.Post("/challenges", s.handleCreateChallenge)
		r.Get("/challenges/{challengeID}", s.handleGetChallenge)
		r.Post("/challenges/{challengeID}/accept", s.handleAcceptChallenge)
		r.Post("/challenges/{challengeID}/decline", s.handleDeclineChallenge)
		r.Post("/challenges/{challengeID}/complete", s.handleCompleteChallenge)
		r.Get("/users/{userID}/challenges", s.handleListChallenges)

		// Friends
		r.Get("/friends/{userID}", s.handleListFriends)
		r.Get("/friends/{userID}/pending", s.handlePendingFriends)
		r.Post("/friends/request", s.handleFriendRequest)
		r.Post("/friends/respond", s.handleFriendRespond)

		// Badges
		r.Get("/badges/user/{userID}", s.handleListUserBadges)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error to a status code and JSON body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the web frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
