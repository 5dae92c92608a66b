package domain

import "testing"

func TestCanTransition(t *testing.T) {
	all := []RideStatus{RidePending, RideAccepted, RideInProgress, RideCompleted, RideCancelled}
	allowed := map[[2]RideStatus]bool{
		{RidePending, RideAccepted}:     true,
		{RidePending, RideCancelled}:    true,
		{RideAccepted, RideInProgress}:  true,
		{RideAccepted, RideCancelled}:   true,
		{RideInProgress, RideCompleted}: true,
		{RideInProgress, RideCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]RideStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestLoadStatusFor(t *testing.T) {
	tests := []struct {
		load, capacity float64
		want           LoadStatus
	}{
		{0, 150, LoadEmpty},
		{75, 150, LoadHalf},
		{76, 150, LoadFull},
		{150, 150, LoadFull},
		{160, 150, LoadOverload},
		{10, 0, LoadOverload},
	}
	for _, tt := range tests {
		if got := LoadStatusFor(tt.load, tt.capacity); got != tt.want {
			t.Errorf("LoadStatusFor(%v, %v) = %s, want %s", tt.load, tt.capacity, got, tt.want)
		}
	}
}

func TestVehicleCapacity(t *testing.T) {
	want := map[VehicleType]float64{
		VehicleOkada:   150,
		VehicleKeke:    400,
		VehicleMinibus: 1000,
		VehicleTruck:   3000,
	}
	for v, kg := range want {
		if v.CapacityKg() != kg {
			t.Errorf("%s capacity = %v, want %v", v, v.CapacityKg(), kg)
		}
	}
	if VehicleType("BICYCLE").Valid() {
		t.Error("unknown vehicle must be invalid")
	}
}

func TestSetLoadResets(t *testing.T) {
	u := User{Role: RoleDriver, VehicleCapacityKg: 150}
	u.SetLoad(160)
	if u.LoadStatus != LoadOverload {
		t.Fatalf("expected overload, got %s", u.LoadStatus)
	}
	u.SetLoad(0)
	if u.CurrentLoadKg != 0 || u.LoadStatus != LoadEmpty {
		t.Fatalf("expected reset, got %v/%s", u.CurrentLoadKg, u.LoadStatus)
	}
}

func TestRideCloneIsolation(t *testing.T) {
	r := Ride{RejectedBy: []string{"d1"}}
	c := r.Clone()
	c.RejectedBy[0] = "other"
	if r.RejectedBy[0] != "d1" {
		t.Fatal("clone shares rejectedBy backing array")
	}
}
