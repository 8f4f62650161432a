// Package maintenance owns the once-per-business-day engine upkeep: the
// streak roll and the challenge expiry sweep. It is an explicit,
// constructed component with a Start/Stop lifecycle: the process
// bootstrap owns it and hands it the engine, and there is no ambient
// global scheduler state. Both jobs are idempotent, so firing late,
// early, or twice is harmless.
package maintenance

import (
	"log"
	"sync"
	"time"

	"github.com/grunga-fit/grunga/internal/app/challenge"
	"github.com/grunga-fit/grunga/internal/app/streak"
	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/infra/observability"
)

// Trigger fires daily maintenance at each business midnight.
type Trigger struct {
	streaks    *streak.Tracker
	challenges *challenge.Service
	clk        *clock.Clock

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a maintenance trigger. Nothing runs until Start.
func New(streaks *streak.Tracker, challenges *challenge.Service, clk *clock.Clock) *Trigger {
	return &Trigger{streaks: streaks, challenges: challenges, clk: clk}
}

// Start launches the midnight loop. A second Start is a no-op.
func (t *Trigger) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.loop(t.stopCh, t.doneCh)
	log.Printf("[maintenance] trigger started (tz=%s)", t.clk.Location())
}

// Stop halts the loop and waits for it to exit. Safe to call when not
// running.
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	done := t.doneCh
	t.mu.Unlock()
	<-done
	log.Printf("[maintenance] trigger stopped")
}

func (t *Trigger) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		now := t.clk.Now()
		// A minute past midnight, so the evaluated day is unambiguously over.
		next := t.clk.NextMidnight(now).Add(time.Minute)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			if err := t.RunNow(); err != nil {
				log.Printf("[maintenance] run failed: %v", err)
			}
		}
	}
}

// RunNow performs one maintenance pass: streak roll, then expiry sweep.
// Exposed for the CLI and for external schedulers; safe to call at any
// time, any number of times.
func (t *Trigger) RunNow() error {
	observability.MaintenanceRuns.Inc()

	rolled, err := t.streaks.RunDaily()
	if err != nil {
		return err
	}
	expired, err := t.challenges.ExpirePending()
	if err != nil {
		return err
	}
	log.Printf("[maintenance] daily pass done: %d streak(s) rolled, %d challenge(s) expired", rolled, expired)
	return nil
}
