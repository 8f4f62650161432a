package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/grunga-fit/grunga/internal/app/badge"
	"github.com/grunga-fit/grunga/internal/app/challenge"
	"github.com/grunga-fit/grunga/internal/app/points"
	"github.com/grunga-fit/grunga/internal/app/social"
	"github.com/grunga-fit/grunga/internal/app/workout"
	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

func setupAPI(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "grunga.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := clock.NewAt("", func() time.Time {
		return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	})
	srv := NewServer(
		points.New(db, clk),
		workout.New(db, clk),
		challenge.New(db, clk),
		social.New(db),
		badge.New(db),
	)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func createUser(t *testing.T, h http.Handler, username string) int64 {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"username": username})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user %s: status %d body %s", username, w.Code, w.Body.String())
	}
	return int64(decodeBody(t, w)["user_id"].(float64))
}

func TestHealth(t *testing.T) {
	h := setupAPI(t)
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestUserEndpoints(t *testing.T) {
	h := setupAPI(t)
	createUser(t, h, "alice")

	w := doJSON(t, h, http.MethodGet, "/api/users/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get user: status %d", w.Code)
	}
	if body := decodeBody(t, w); body["username"] != "alice" {
		t.Errorf("body = %v", body)
	}

	w = doJSON(t, h, http.MethodGet, "/api/users/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user: status %d, want 404", w.Code)
	}

	// Duplicate username conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"username": "alice"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate user: status %d, want 409", w.Code)
	}
}

func TestWorkoutAndPointsEndpoints(t *testing.T) {
	h := setupAPI(t)
	uid := createUser(t, h, "alice")

	w := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/users/%d/workouts", uid), map[string]any{
		"workout_type": "pushups",
		"sets":         10,
		"reps":         10,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create workout: status %d body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	totals := body["totals"].(map[string]interface{})
	if totals["total_points"].(float64) != 100 {
		t.Errorf("total_points = %v, want 100", totals["total_points"])
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/points", uid), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get points: status %d", w.Code)
	}
	pts := decodeBody(t, w)
	if pts["daily_points"].(float64) != 100 || pts["streak"].(float64) != 0 {
		t.Errorf("points = %v", pts)
	}
	hist := pts["hist"].([]interface{})
	if len(hist) != 7 {
		t.Fatalf("hist has %d days, want 7", len(hist))
	}
	// 2026-03-04 is a Wednesday, index 2 of the Monday-first week.
	if hist[2].(float64) != 100 {
		t.Errorf("hist = %v, want 100 at Wednesday", hist)
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/ledger", uid), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get ledger: status %d", w.Code)
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(entries) != 1 || entries[0]["reason"] != "workout" {
		t.Errorf("ledger = %v", entries)
	}

	// Invalid workout payload.
	w = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/users/%d/workouts", uid), map[string]any{
		"workout_type": "pushups",
		"sets":         0,
		"reps":         10,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid workout: status %d, want 400", w.Code)
	}
}

func TestWorkoutUpdateDeleteEndpoints(t *testing.T) {
	h := setupAPI(t)
	uid := createUser(t, h, "alice")

	w := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/users/%d/workouts", uid), map[string]any{
		"workout_type": "pushups", "sets": 5, "reps": 10,
	})
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}
	wid := int64(decodeBody(t, w)["workout"].(map[string]interface{})["id"].(float64))

	w = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/users/%d/workouts/%d", uid, wid), map[string]any{
		"workout_type": "pushups", "sets": 8, "reps": 10,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", w.Code, w.Body.String())
	}
	totals := decodeBody(t, w)["totals"].(map[string]interface{})
	if totals["total_points"].(float64) != 80 {
		t.Errorf("total after update = %v, want 80", totals["total_points"])
	}

	w = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d/workouts/%d", uid, wid), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d", w.Code)
	}
	totals = decodeBody(t, w)["totals"].(map[string]interface{})
	if totals["total_points"].(float64) != 0 {
		t.Errorf("total after delete = %v, want 0", totals["total_points"])
	}

	w = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d/workouts/%d", uid, wid), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", w.Code)
	}
}

func TestChallengeEndpoints(t *testing.T) {
	h := setupAPI(t)
	alice := createUser(t, h, "alice")
	bob := createUser(t, h, "bob")

	w := doJSON(t, h, http.MethodPost, "/api/challenges", map[string]any{
		"sender_user_id":   alice,
		"receiver_user_id": bob,
		"base_points":      25,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	chID := decodeBody(t, w)["challenge_id"].(string)

	// Self-challenge is a bad request.
	w = doJSON(t, h, http.MethodPost, "/api/challenges", map[string]any{
		"sender_user_id": alice, "receiver_user_id": alice, "base_points": 25,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("self challenge: status %d, want 400", w.Code)
	}
	// Duplicate pending same day conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/challenges", map[string]any{
		"sender_user_id": alice, "receiver_user_id": bob, "base_points": 25,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: status %d, want 409", w.Code)
	}

	// Sender cannot accept.
	w = doJSON(t, h, http.MethodPost, "/api/challenges/"+chID+"/accept", map[string]any{
		"actor_user_id": alice,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("sender accept: status %d, want 403", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/challenges/"+chID+"/accept", map[string]any{
		"actor_user_id": bob,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: status %d body %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["status"] != "ACTIVE" {
		t.Errorf("status after accept = %v", decodeBody(t, w)["status"])
	}

	// Double accept conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/challenges/"+chID+"/accept", map[string]any{
		"actor_user_id": bob,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("double accept: status %d, want 409", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/challenges/"+chID+"/complete", map[string]any{
		"actor_user_id": bob,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: status %d body %s", w.Code, w.Body.String())
	}

	// Rewards landed: receiver 50, sender 25.
	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/points", bob), nil)
	if got := decodeBody(t, w)["total_points"].(float64); got != 50 {
		t.Errorf("receiver total = %v, want 50", got)
	}
	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/points", alice), nil)
	if got := decodeBody(t, w)["total_points"].(float64); got != 25 {
		t.Errorf("sender total = %v, want 25", got)
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/challenges?box=done", bob), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list done: status %d", w.Code)
	}
	var done []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &done); err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0]["status"] != "COMPLETED" {
		t.Errorf("done box = %v", done)
	}

	w = doJSON(t, h, http.MethodGet, "/api/challenges/unknown-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown challenge: status %d, want 404", w.Code)
	}
}

func TestFriendEndpoints(t *testing.T) {
	h := setupAPI(t)
	alice := createUser(t, h, "alice")
	bob := createUser(t, h, "bob")

	w := doJSON(t, h, http.MethodPost, "/api/friends/request", map[string]any{
		"from_user_id": alice, "to_user_id": bob,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("request: status %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/friends/%d/pending", bob), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending: status %d", w.Code)
	}
	pending := decodeBody(t, w)
	if in := pending["incoming"].([]interface{}); len(in) != 1 {
		t.Errorf("incoming = %v, want 1 entry", in)
	}

	w = doJSON(t, h, http.MethodPost, "/api/friends/respond", map[string]any{
		"user_id": bob, "other_user_id": alice, "accept": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("respond: status %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/friends/%d", alice), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("friends: status %d", w.Code)
	}
	var friends []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &friends); err != nil {
		t.Fatal(err)
	}
	if len(friends) != 1 || friends[0]["username"] != "bob" {
		t.Errorf("friends = %v", friends)
	}
}

func TestBadgeEndpoint(t *testing.T) {
	h := setupAPI(t)
	uid := createUser(t, h, "alice")

	// Creating a workout evaluates badges best-effort.
	w := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/users/%d/workouts", uid), map[string]any{
		"workout_type": "pushups", "sets": 10, "reps": 10,
	})
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/badges/user/%d", uid), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("badges: status %d", w.Code)
	}
	var badges []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &badges); err != nil {
		t.Fatal(err)
	}
	if len(badges) != 4 {
		t.Fatalf("catalog has %d badges, want 4", len(badges))
	}
	unlocked := map[string]bool{}
	for _, b := range badges {
		unlocked[b["code"].(string)] = b["unlocked"].(bool)
	}
	if !unlocked["first_workout"] || !unlocked["club_100"] {
		t.Errorf("unlocked = %v, want first_workout and club_100", unlocked)
	}
	if unlocked["streak_7"] || unlocked["challenger"] {
		t.Errorf("unlocked = %v, streak_7/challenger should be locked", unlocked)
	}
}

func TestMetricsEndpointGated(t *testing.T) {
	h := setupAPI(t)
	w := doJSON(t, h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("metrics without enable: status %d, want not mounted", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := setupAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("preflight: status %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
