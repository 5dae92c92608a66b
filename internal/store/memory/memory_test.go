package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	repos := s.Repos()

	if err := repos.Users.Insert(ctx, domain.User{ID: "p1", Email: "p1@example.com", WalletBalance: 1000}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		u, err := r.Users.Get(ctx, "p1")
		if err != nil {
			return err
		}
		u.WalletBalance -= 450
		if err := r.Users.Update(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	u, _ := repos.Users.Get(ctx, "p1")
	if u.WalletBalance != 1000 {
		t.Fatalf("expected rollback to keep 1000, got %v", u.WalletBalance)
	}
}

func TestWithinTxCommits(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		if err := r.Users.Insert(ctx, domain.User{ID: "u1", Email: "a@example.com"}); err != nil {
			return err
		}
		return r.Rides.Insert(ctx, domain.Ride{ID: "r1", PassengerID: "u1", Status: domain.RidePending})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if _, err := s.Repos().Rides.Get(ctx, "r1"); err != nil {
		t.Fatalf("ride not committed: %v", err)
	}
}

func TestUserUniqueness(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	users := s.Repos().Users

	if err := users.Insert(ctx, domain.User{ID: "u1", Email: "a@example.com", NIN: "123"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := users.Insert(ctx, domain.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if err := users.Insert(ctx, domain.User{ID: "u3", Email: "b@example.com", NIN: "123"}); !errors.Is(err, store.ErrDuplicateNIN) {
		t.Fatalf("expected duplicate nin, got %v", err)
	}
	if err := users.Insert(ctx, domain.User{ID: "u4", Email: "c@example.com"}); err != nil {
		t.Fatalf("empty nin must not collide: %v", err)
	}
	if err := users.Insert(ctx, domain.User{ID: "u5", Email: "d@example.com"}); err != nil {
		t.Fatalf("empty nin must not collide: %v", err)
	}
}

func TestUpdateIfStatus(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	rides := s.Repos().Rides

	ride := domain.Ride{ID: "r1", Status: domain.RidePending}
	if err := rides.Insert(ctx, ride); err != nil {
		t.Fatalf("insert: %v", err)
	}

	accepted := ride
	accepted.Status = domain.RideAccepted
	accepted.DriverID = "d1"
	if err := rides.UpdateIfStatus(ctx, accepted, domain.RidePending); err != nil {
		t.Fatalf("first CAS: %v", err)
	}

	second := ride
	second.Status = domain.RideAccepted
	second.DriverID = "d2"
	if err := rides.UpdateIfStatus(ctx, second, domain.RidePending); !errors.Is(err, store.ErrStatusConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, _ := rides.Get(ctx, "r1")
	if got.DriverID != "d1" {
		t.Fatalf("expected d1 to keep the ride, got %s", got.DriverID)
	}
}

func TestRideFilter(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	rides := s.Repos().Rides
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		id     string
		status domain.RideStatus
		age    time.Duration
	}{
		{"r0", domain.RideCancelled, 0},
		{"r1", domain.RideCancelled, 40 * time.Minute},
		{"r2", domain.RideCancelled, time.Hour},
		{"r3", domain.RideCancelled, 80 * time.Minute},
		{"r4", domain.RidePending, 10 * time.Minute},
	}
	for _, sd := range seed {
		if err := rides.Insert(ctx, domain.Ride{
			ID:          sd.id,
			PassengerID: "p1",
			Status:      sd.status,
			CreatedAt:   now.Add(-sd.age),
		}); err != nil {
			t.Fatalf("insert %s: %v", sd.id, err)
		}
	}

	got, err := rides.List(ctx, store.RideFilter{
		PassengerID:  "p1",
		Statuses:     []domain.RideStatus{domain.RideCancelled},
		CreatedAfter: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := map[string]bool{}
	for _, r := range got {
		ids[r.ID] = true
	}
	// CreatedAfter is inclusive: r2 sits exactly on the edge, r3 is outside the window.
	if len(got) != 3 || !ids["r0"] || !ids["r1"] || !ids["r2"] {
		t.Fatalf("expected r0, r1, r2, got %+v", got)
	}

	stale, err := rides.List(ctx, store.RideFilter{
		Statuses:      []domain.RideStatus{domain.RideCancelled},
		CreatedBefore: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "r3" {
		t.Fatalf("expected only r3 before the window, got %+v", stale)
	}
}

func TestActivityRetention(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	log := s.Repos().Activity

	for i := 0; i < 5; i++ {
		_ = log.Append(ctx, domain.ActivityRecord{ID: fmt.Sprintf("a%d", i), UserID: "u1"})
	}
	all, _ := log.List(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != "a4" || all[2].ID != "a2" {
		t.Fatalf("expected newest first a4..a2, got %s..%s", all[0].ID, all[2].ID)
	}

	limited, _ := log.ListByUser(ctx, "u1", 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestWithinTxHonoursCancelledContext(t *testing.T) {
	s := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.WithinTx(ctx, func(context.Context, store.Repos) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected context.Canceled without running fn, got %v (called=%v)", err, called)
	}
}
