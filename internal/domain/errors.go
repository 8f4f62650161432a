package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Every public engine operation returns either a value or an error
// wrapping one of these kinds; callers classify with errors.Is.

var (
	// ErrInvalidArgument rejects malformed input (bad sets/reps,
	// unrecognized reason code) before any write happens.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports an unknown user, workout, or challenge.
	ErrNotFound = errors.New("not found")

	// ErrForbidden reports an actor who is not the challenge's
	// addressed receiver.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState reports a transition attempted from a state that
	// does not allow it, including re-firing a terminal transition.
	// Callers should treat this as a conflict, not a bug.
	ErrInvalidState = errors.New("invalid state")

	// ErrStorage wraps an underlying transaction that could not commit.
	// The attempted operation was rolled back whole; retry is safe.
	ErrStorage = errors.New("storage failure")
)
