// Package observability holds the Prometheus metrics for the
// gamification engine. Counters are registered once via promauto and
// shared by the app services; the HTTP server exposes them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engine Metrics ─────────────────────────────────────────────────────────

var (
	// LedgerEntries counts ledger rows appended, by reason.
	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grunga_ledger_entries_total",
		Help: "Ledger entries appended, by reason code.",
	}, []string{"reason"})

	// Recomputes counts totals-cache recomputations.
	Recomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grunga_totals_recomputes_total",
		Help: "Totals cache recomputations.",
	})

	// ChallengeTransitions counts lifecycle transitions, by event.
	ChallengeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grunga_challenge_transitions_total",
		Help: "Challenge lifecycle transitions, by event.",
	}, []string{"event"})

	// ChallengesExpired counts challenges moved to EXPIRED by the sweep.
	ChallengesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grunga_challenges_expired_total",
		Help: "Challenges expired by the daily sweep.",
	})

	// StreakRolls counts per-user streak evaluations that wrote a row.
	StreakRolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grunga_streak_rolls_total",
		Help: "Per-user streak rows written by the daily roll.",
	})

	// MaintenanceRuns counts daily maintenance invocations.
	MaintenanceRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grunga_maintenance_runs_total",
		Help: "Daily maintenance invocations.",
	})

	// BadgeUnlocks counts badge unlocks, by badge code.
	BadgeUnlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grunga_badge_unlocks_total",
		Help: "Badges unlocked, by code.",
	}, []string{"code"})
)
