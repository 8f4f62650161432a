package challenge

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/grunga-fit/grunga/internal/app/points"
	"github.com/grunga-fit/grunga/internal/clock"
	"github.com/grunga-fit/grunga/internal/domain"
	"github.com/grunga-fit/grunga/internal/infra/sqlite"
)

type fixture struct {
	db       *sqlite.DB
	clk      *clock.Clock
	svc      *Service
	now      *time.Time
	sender   int64
	receiver int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "grunga.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := new(time.Time)
	clk := clock.NewAt("", func() time.Time { return *now })
	*now = time.Date(2026, 3, 4, 10, 0, 0, 0, clk.Location())

	sender, err := db.InsertUser("alice", "alice")
	if err != nil {
		t.Fatal(err)
	}
	receiver, err := db.InsertUser("bob", "bob")
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		db:       db,
		clk:      clk,
		svc:      New(db, clk),
		now:      now,
		sender:   sender,
		receiver: receiver,
	}
}

func (f *fixture) totals(t *testing.T, userID int64) domain.Totals {
	t.Helper()
	tot, err := f.db.GetTotals(userID)
	if err != nil {
		t.Fatalf("get totals: %v", err)
	}
	if tot == nil {
		return domain.Totals{UserID: userID}
	}
	return *tot
}

// ─── Creation ───────────────────────────────────────────────────────────────

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Error("challenge id should be assigned")
	}
	if c.Status != domain.ChallengePending {
		t.Errorf("status = %s, want PENDING", c.Status)
	}
	// Zero expiry defaults to the next business midnight.
	want := f.clk.NextMidnight(*f.now)
	if !c.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", c.ExpiresAt, want)
	}
}

func TestCreate_Guards(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		sender   int64
		receiver int64
		base     int64
		wantErr  error
	}{
		{"self challenge", f.sender, f.sender, 25, domain.ErrInvalidArgument},
		{"zero base points", f.sender, f.receiver, 0, domain.ErrInvalidArgument},
		{"negative base points", f.sender, f.receiver, -5, domain.ErrInvalidArgument},
		{"unknown sender", 99, f.receiver, 25, domain.ErrNotFound},
		{"unknown receiver", f.sender, 99, 25, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(tt.sender, tt.receiver, tt.base, time.Time{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreate_OnePendingPerPairPerDay(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("duplicate same day: err = %v, want ErrInvalidState", err)
	}

	// The reverse direction is a different ordered pair.
	if _, err := f.svc.Create(f.receiver, f.sender, 25, time.Time{}); err != nil {
		t.Errorf("reverse pair should be allowed: %v", err)
	}

	// The next business day clears the guard.
	*f.now = f.now.Add(24 * time.Hour)
	if _, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{}); err != nil {
		t.Errorf("next day should be allowed: %v", err)
	}
}

// ─── Response ───────────────────────────────────────────────────────────────

func TestAcceptDecline(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	// The sender may not accept their own challenge.
	if _, err := f.svc.Accept(c.ID, f.sender); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("sender accept: err = %v, want ErrForbidden", err)
	}

	got, err := f.svc.Accept(c.ID, f.receiver)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != domain.ChallengeActive {
		t.Errorf("status = %s, want ACTIVE", got.Status)
	}

	// A second accept finds the challenge out of PENDING.
	if _, err := f.svc.Accept(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("double accept: err = %v, want ErrInvalidState", err)
	}
	// So does a decline after accept.
	if _, err := f.svc.Decline(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("decline after accept: err = %v, want ErrInvalidState", err)
	}
}

func TestDecline_IsTerminal(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Decline(c.ID, f.receiver)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if got.Status != domain.ChallengeDeclined {
		t.Errorf("status = %s, want DECLINED", got.Status)
	}
	if _, err := f.svc.Accept(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("accept after decline: err = %v, want ErrInvalidState", err)
	}
}

func TestRespond_UnknownChallenge(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Accept("nope", f.receiver); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// ─── Completion ─────────────────────────────────────────────────────────────

func TestComplete_PaysBothSides(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Accept(c.ID, f.receiver); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Complete(c.ID, f.receiver)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != domain.ChallengeCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}

	if tot := f.totals(t, f.receiver); tot.TotalPoints != 50 {
		t.Errorf("receiver total = %d, want 50 (2x base)", tot.TotalPoints)
	}
	if tot := f.totals(t, f.sender); tot.TotalPoints != 25 {
		t.Errorf("sender total = %d, want 25 (1x base)", tot.TotalPoints)
	}

	// Each side has exactly one reward entry referencing the challenge.
	pointsSvc := points.New(f.db, f.clk)
	for _, uid := range []int64{f.sender, f.receiver} {
		entries, err := pointsSvc.EntriesForUser(uid, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].RefID != c.ID {
			t.Errorf("user %d entries = %+v, want one entry ref %s", uid, entries, c.ID)
		}
	}
}

func TestComplete_Guards(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	// Completing a PENDING challenge is out of order.
	if _, err := f.svc.Complete(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("complete pending: err = %v, want ErrInvalidState", err)
	}

	if _, err := f.svc.Accept(c.ID, f.receiver); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Complete(c.ID, f.sender); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("sender complete: err = %v, want ErrForbidden", err)
	}

	if _, err := f.svc.Complete(c.ID, f.receiver); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// Double completion must not pay twice.
	if _, err := f.svc.Complete(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("double complete: err = %v, want ErrInvalidState", err)
	}
	if tot := f.totals(t, f.receiver); tot.TotalPoints != 50 {
		t.Errorf("receiver total after double complete = %d, want 50", tot.TotalPoints)
	}
}

// ─── Expiry ─────────────────────────────────────────────────────────────────

func TestExpirePending_Sweep(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	// An accepted challenge survives the sweep even past its expiry.
	c2, err := f.svc.Create(f.receiver, f.sender, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Accept(c2.ID, f.sender); err != nil {
		t.Fatal(err)
	}

	// Past midnight, both default expiries have lapsed.
	*f.now = f.now.Add(20 * time.Hour)

	n, err := f.svc.ExpirePending()
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d, want 1", n)
	}

	got, err := f.svc.Get(c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ChallengeExpired {
		t.Errorf("status = %s, want EXPIRED", got.Status)
	}

	// Expired is terminal.
	if _, err := f.svc.Accept(c.ID, f.receiver); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("accept expired: err = %v, want ErrInvalidState", err)
	}

	// Re-running the sweep is a no-op.
	n, err = f.svc.ExpirePending()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d, want 0", n)
	}
}

// ─── Queries ────────────────────────────────────────────────────────────────

func TestList_Boxes(t *testing.T) {
	f := newFixture(t)

	c1, err := f.svc.Create(f.sender, f.receiver, 25, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := f.svc.Create(f.receiver, f.sender, 30, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Accept(c2.ID, f.sender); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Decline(c1.ID, f.receiver); err != nil {
		t.Fatal(err)
	}

	incoming, err := f.svc.List(f.sender, "incoming")
	if err != nil {
		t.Fatal(err)
	}
	if len(incoming) != 1 || incoming[0].ID != c2.ID {
		t.Errorf("incoming = %+v, want only %s", incoming, c2.ID)
	}

	done, err := f.svc.List(f.receiver, "done")
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].ID != c1.ID {
		t.Errorf("done = %+v, want only %s", done, c1.ID)
	}

	all, err := f.svc.List(f.sender, "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d challenges, want 2", len(all))
	}
}
