package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/grunga-fit/grunga/internal/domain"
)

// ─── Workout Operations ─────────────────────────────────────────────────────
// Workout rows are plain CRUD; their point consequences live entirely in
// the ledger, written by the app layer in the same transaction.

// InsertWorkout creates a workout row within the transaction.
func (t *Tx) InsertWorkout(w domain.Workout) (int64, error) {
	res, err := t.tx.Exec(`
		INSERT INTO workouts (user_id, workout_type, sets, reps, logged_at)
		VALUES (?, ?, ?, ?, ?)
	`, w.UserID, w.WorkoutType, w.Sets, w.Reps, encodeTime(w.LoggedAt))
	if err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}
	return res.LastInsertId()
}

// UpdateWorkout rewrites the mutable fields of a workout row.
func (t *Tx) UpdateWorkout(w domain.Workout) error {
	_, err := t.tx.Exec(`
		UPDATE workouts SET workout_type = ?, sets = ?, reps = ?
		WHERE workout_id = ? AND user_id = ?
	`, w.WorkoutType, w.Sets, w.Reps, w.ID, w.UserID)
	if err != nil {
		return fmt.Errorf("update workout: %w", err)
	}
	return nil
}

// DeleteWorkout removes a workout row within the transaction.
func (t *Tx) DeleteWorkout(userID, workoutID int64) error {
	_, err := t.tx.Exec(`
		DELETE FROM workouts WHERE workout_id = ? AND user_id = ?
	`, workoutID, userID)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return nil
}

// GetWorkout returns the workout row, or nil if unknown.
func (db *DB) GetWorkout(userID, workoutID int64) (*domain.Workout, error) {
	return getWorkout(db.db, userID, workoutID)
}

// GetWorkout reads a workout row within the transaction.
func (t *Tx) GetWorkout(userID, workoutID int64) (*domain.Workout, error) {
	return getWorkout(t.tx, userID, workoutID)
}

func getWorkout(q querier, userID, workoutID int64) (*domain.Workout, error) {
	var w domain.Workout
	var logged string
	err := q.QueryRow(`
		SELECT workout_id, user_id, workout_type, sets, reps, logged_at
		FROM workouts WHERE workout_id = ? AND user_id = ?
	`, workoutID, userID).Scan(&w.ID, &w.UserID, &w.WorkoutType, &w.Sets, &w.Reps, &logged)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}
	w.LoggedAt = decodeTime(logged)
	return &w, nil
}

// ListWorkouts returns the user's workouts, newest first.
func (db *DB) ListWorkouts(userID int64, limit int) ([]domain.Workout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.Query(`
		SELECT workout_id, user_id, workout_type, sets, reps, logged_at
		FROM workouts WHERE user_id = ?
		ORDER BY logged_at DESC, workout_id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var out []domain.Workout
	for rows.Next() {
		var w domain.Workout
		var logged string
		if err := rows.Scan(&w.ID, &w.UserID, &w.WorkoutType, &w.Sets, &w.Reps, &logged); err != nil {
			return nil, err
		}
		w.LoggedAt = decodeTime(logged)
		out = append(out, w)
	}
	return out, rows.Err()
}
