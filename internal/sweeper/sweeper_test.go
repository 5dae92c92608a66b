package sweeper

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store/memory"
)

func TestSweepCancelsStalePending(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	now := start

	st := memory.New(0)
	engine := dispatch.New(st, settings.NewStatic(domain.DefaultPricing()), &events.Recorder{}, zaptest.NewLogger(t),
		dispatch.WithClock(func() time.Time { return now }),
	)
	for _, u := range []domain.User{
		{ID: "p1", Email: "p1@example.com", Role: domain.RolePassenger, Status: domain.StatusActive},
		{ID: "d1", Email: "d1@example.com", Role: domain.RoleDriver, Status: domain.StatusActive, IsOnline: true, VehicleCapacityKg: 150},
	} {
		if err := st.Repos().Users.Insert(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	book := func() domain.Ride {
		r, err := engine.CreateRide(ctx, dispatch.CreateRideInput{
			PassengerID:    "p1",
			VehicleType:    domain.VehicleOkada,
			PickupAddress:  "Obalende",
			DropoffAddress: "Surulere",
			DistanceKm:     4,
		})
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	stale := book()
	taken := book()
	if _, err := engine.AcceptRide(ctx, taken.ID, "d1"); err != nil {
		t.Fatal(err)
	}
	now = start.Add(8 * time.Minute)
	fresh := book()

	s := New(st.Repos().Rides, engine, 5*time.Minute, time.Minute, zaptest.NewLogger(t))
	now = start.Add(10 * time.Minute)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("cancelled %d rides, want 1", n)
	}

	want := map[string]domain.RideStatus{
		stale.ID: domain.RideCancelled,
		taken.ID: domain.RideAccepted,
		fresh.ID: domain.RidePending,
	}
	for id, status := range want {
		r, err := st.Repos().Rides.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if r.Status != status {
			t.Errorf("ride %s = %s, want %s", id, r.Status, status)
		}
	}
	r, _ := st.Repos().Rides.Get(ctx, stale.ID)
	if r.CancellationReason == "" {
		t.Error("missing cancellation reason")
	}

	if n, _ := s.Sweep(ctx); n != 0 {
		t.Errorf("second sweep cancelled %d", n)
	}
}

func TestDisabledSweeperReturns(t *testing.T) {
	s := New(memory.New(0).Repos().Rides, nil, 0, time.Minute, zaptest.NewLogger(t))
	if s.Enabled() {
		t.Fatal("zero timeout must disable the sweeper")
	}
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled sweeper")
	}
}
