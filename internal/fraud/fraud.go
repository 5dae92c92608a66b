// Package fraud holds the cancellation trip-wire evaluated on every booking.
package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

const (
	DefaultWindow    = time.Hour
	DefaultThreshold = 3

	SuspensionReason = "Automated Fraud Detection: excessive cancellations in the last hour"
)

// Guard counts a passenger's recently cancelled rides.
type Guard struct {
	Window    time.Duration
	Threshold int
}

func NewGuard() Guard {
	return Guard{Window: DefaultWindow, Threshold: DefaultThreshold}
}

// Trips reports whether the passenger has at least Threshold CANCELLED rides created within
// [now-Window, now]. Callers run it inside the booking transaction so the count and the
// resulting suspension are decided before any ride is inserted.
func (g Guard) Trips(ctx context.Context, rides store.RideRepository, passengerID string, now time.Time) (bool, int, error) {
	// CreatedBefore is exclusive; include rides stamped at exactly now.
	until := now.Add(time.Nanosecond)
	cancelled, err := rides.List(ctx, store.RideFilter{
		PassengerID:   passengerID,
		Statuses:      []domain.RideStatus{domain.RideCancelled},
		CreatedAfter:  now.Add(-g.Window),
		CreatedBefore: until,
	})
	if err != nil {
		return false, 0, fmt.Errorf("count cancellations: %w", err)
	}
	return len(cancelled) >= g.Threshold, len(cancelled), nil
}

// Suspend marks the passenger suspended with the fixed diagnostic reason.
func Suspend(u *domain.User, now time.Time) {
	u.Status = domain.StatusSuspended
	u.SuspensionReason = SuspensionReason
	u.UpdatedAt = now
}
