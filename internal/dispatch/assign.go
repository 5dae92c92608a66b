package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/store"
)

// AcceptRide assigns a PENDING ride to the accepting driver. Exactly one of several
// concurrent accepts wins; the others get RIDE_ALREADY_TAKEN.
func (e *Engine) AcceptRide(ctx context.Context, rideID, driverID string) (domain.Ride, error) {
	return e.assign(ctx, rideID, driverID, "", false)
}

// ManualAssign is the admin path to AcceptRide. It ignores the driver's earlier rejection
// but still requires the driver to be online.
func (e *Engine) ManualAssign(ctx context.Context, actorID, rideID, driverID string) (domain.Ride, error) {
	return e.assign(ctx, rideID, driverID, actorID, true)
}

func (e *Engine) assign(ctx context.Context, rideID, driverID, actorID string, manual bool) (domain.Ride, error) {
	var ride domain.Ride
	err := e.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		r, err := getRide(ctx, repos, rideID)
		if err != nil {
			return err
		}
		if r.DriverID != "" {
			return apperr.RideAlreadyTaken(r.ID)
		}
		if r.Status != domain.RidePending {
			return apperr.InvalidTransition(string(r.Status), string(domain.RideAccepted))
		}

		d, err := getUser(ctx, repos, "driver", driverID)
		if err != nil {
			return err
		}
		switch {
		case !d.IsDriver():
			return apperr.Forbidden("only drivers can take rides").With("user_id", d.ID)
		case d.Blocked():
			return apperr.AccountBlocked(string(d.Status), d.SuspensionReason)
		case !d.IsOnline:
			return apperr.Validation("driver is offline").With("driver_id", d.ID)
		case d.ID == r.PassengerID:
			return apperr.Validation("driver cannot take their own booking")
		case !manual && r.RejectedByDriver(d.ID):
			return apperr.Validation("driver already rejected this ride").With("ride_id", r.ID)
		}

		now := e.clock()
		r.Status = domain.RideAccepted
		r.DriverID = d.ID
		r.UpdatedAt = now
		if err := repos.Rides.UpdateIfStatus(ctx, r, domain.RidePending); err != nil {
			if errors.Is(err, store.ErrStatusConflict) {
				return apperr.RideAlreadyTaken(r.ID)
			}
			return fmt.Errorf("accept ride: %w", err)
		}

		d.SetLoad(d.CurrentLoadKg + r.EstimatedWeightKg)
		d.UpdatedAt = now
		if err := repos.Users.Update(ctx, d); err != nil {
			return fmt.Errorf("update driver load: %w", err)
		}

		ride = r
		if manual {
			details := fmt.Sprintf("ride %s assigned to %s by %s", r.ID, d.ID, actorID)
			return e.activity.Record(ctx, repos.Activity, d.ID, activity.ActionRideAssigned, details)
		}
		details := fmt.Sprintf("ride %s accepted, load %.1f/%.1f kg (%s)", r.ID, d.CurrentLoadKg, d.VehicleCapacityKg, d.LoadStatus)
		return e.activity.Record(ctx, repos.Activity, d.ID, activity.ActionRideAccepted, details)
	})
	if err != nil {
		return domain.Ride{}, err
	}

	e.logger.Info("ride accepted",
		zap.String("ride_id", ride.ID),
		zap.String("driver_id", ride.DriverID),
		zap.Bool("manual", manual),
	)
	e.events.Emit(ctx, events.ForRide(events.RideAccepted, ride, ride.UpdatedAt))
	return ride, nil
}

// RejectRide records that the driver declined a PENDING ride so it is never offered to
// them again. Rejecting twice has no further effect.
func (e *Engine) RejectRide(ctx context.Context, rideID, driverID string) (domain.Ride, error) {
	var (
		ride    domain.Ride
		changed bool
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		r, err := getRide(ctx, repos, rideID)
		if err != nil {
			return err
		}
		d, err := getUser(ctx, repos, "driver", driverID)
		if err != nil {
			return err
		}
		if !d.IsDriver() {
			return apperr.Forbidden("only drivers can reject rides").With("user_id", d.ID)
		}
		if r.RejectedByDriver(d.ID) {
			ride = r
			return nil
		}
		if r.Status != domain.RidePending {
			return apperr.InvalidTransition(string(r.Status), "REJECTED").
				With("reason", "only pending rides can be rejected")
		}

		r.RejectedBy = append(r.RejectedBy, d.ID)
		r.UpdatedAt = e.clock()
		if err := repos.Rides.UpdateIfStatus(ctx, r, domain.RidePending); err != nil {
			if errors.Is(err, store.ErrStatusConflict) {
				return apperr.RideAlreadyTaken(r.ID)
			}
			return fmt.Errorf("reject ride: %w", err)
		}
		ride, changed = r, true
		return e.activity.Record(ctx, repos.Activity, d.ID, activity.ActionRideRejected, "ride "+r.ID)
	})
	if err != nil {
		return domain.Ride{}, err
	}
	if changed {
		ev := events.ForRide(events.RideRejected, ride, ride.UpdatedAt)
		ev.UserID = driverID
		e.events.Emit(ctx, ev)
	}
	return ride, nil
}
