package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/store"
)

// SystemActor is the empty actor id used by background jobs; it skips the party checks.
const SystemActor = ""

type AdvanceInput struct {
	RideID  string
	Status  domain.RideStatus
	ActorID string
	// Reason is stored on the ride when it is cancelled.
	Reason string
}

var statusActions = map[domain.RideStatus]string{
	domain.RideInProgress: activity.ActionRideStarted,
	domain.RideCompleted:  activity.ActionRideCompleted,
	domain.RideCancelled:  activity.ActionRideCancelled,
}

// AdvanceStatus moves a ride along the state machine. Completing a ride settles both wallets
// and releases the driver's load in the same transaction; cancelling releases the load without
// moving money. PENDING to ACCEPTED goes through AcceptRide or ManualAssign instead.
func (e *Engine) AdvanceStatus(ctx context.Context, in AdvanceInput) (domain.Ride, error) {
	if !in.Status.Valid() {
		return domain.Ride{}, apperr.Validation("unknown ride status").With("status", string(in.Status))
	}

	var ride domain.Ride
	err := e.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		r, err := getRide(ctx, repos, in.RideID)
		if err != nil {
			return err
		}
		from := r.Status
		if !domain.CanTransition(from, in.Status) {
			return apperr.InvalidTransition(string(from), string(in.Status))
		}
		// PENDING -> ACCEPTED is legal but needs a driver; it only goes through accept or assign.
		if in.Status == domain.RideAccepted {
			return apperr.Validation("rides are accepted through the accept or assign operations")
		}
		actorID, err := e.authorizeAdvance(ctx, repos, r, in)
		if err != nil {
			return err
		}

		now := e.clock()
		r.Status = in.Status
		r.UpdatedAt = now
		switch in.Status {
		case domain.RideCompleted:
			end := now
			r.EndTime = &end
		case domain.RideCancelled:
			r.CancellationReason = in.Reason
		}
		if err := repos.Rides.UpdateIfStatus(ctx, r, from); err != nil {
			if errors.Is(err, store.ErrStatusConflict) {
				return apperr.InvalidTransition(string(from), string(in.Status)).
					With("reason", "ride status changed concurrently")
			}
			return fmt.Errorf("advance ride: %w", err)
		}

		switch {
		case in.Status == domain.RideCompleted:
			if err := e.settle(ctx, repos, r); err != nil {
				return err
			}
		case in.Status == domain.RideCancelled && r.DriverID != "":
			if err := e.releaseDriver(ctx, repos, r.DriverID); err != nil {
				return err
			}
		}

		ride = r
		details := fmt.Sprintf("ride %s %s -> %s", r.ID, from, r.Status)
		if actorID == SystemActor {
			actorID = r.PassengerID
			details += " by system"
		}
		if in.Reason != "" {
			details += ": " + in.Reason
		}
		return e.activity.Record(ctx, repos.Activity, actorID, statusActions[r.Status], details)
	})
	if err != nil {
		return domain.Ride{}, err
	}

	e.logger.Info("ride status changed",
		zap.String("ride_id", ride.ID),
		zap.String("status", string(ride.Status)),
		zap.String("actor_id", in.ActorID),
	)
	e.events.Emit(ctx, events.ForRide(events.RideStatusChanged, ride, ride.UpdatedAt))
	return ride, nil
}

// authorizeAdvance checks that the actor may move the ride to in.Status. Parties to the ride
// and staff may cancel; only the assigned driver starts and completes it.
func (e *Engine) authorizeAdvance(ctx context.Context, repos store.Repos, r domain.Ride, in AdvanceInput) (string, error) {
	if in.ActorID == SystemActor {
		return SystemActor, nil
	}
	actor, err := getUser(ctx, repos, "user", in.ActorID)
	if err != nil {
		return "", err
	}
	if err := requireActive(actor); err != nil {
		return "", err
	}
	isParty := actor.ID == r.PassengerID || (r.DriverID != "" && actor.ID == r.DriverID)
	if !isParty && !actor.Role.Privileged() {
		return "", apperr.Forbidden("not a party to this ride").With("ride_id", r.ID)
	}
	if in.Status != domain.RideCancelled && actor.ID != r.DriverID {
		return "", apperr.Forbidden("only the assigned driver can start or complete a ride").With("ride_id", r.ID)
	}
	return actor.ID, nil
}

// settle debits the passenger by the fare, credits the driver with DriverShare of it and
// releases the driver's load. The remaining 20% is the platform commission.
func (e *Engine) settle(ctx context.Context, repos store.Repos, r domain.Ride) error {
	p, err := getUser(ctx, repos, "passenger", r.PassengerID)
	if err != nil {
		return err
	}
	d, err := getUser(ctx, repos, "driver", r.DriverID)
	if err != nil {
		return err
	}

	now := e.clock()
	earning := domain.RoundMoney(r.Price * DriverShare)
	p.WalletBalance = domain.RoundMoney(p.WalletBalance - r.Price)
	p.UpdatedAt = now
	d.WalletBalance = domain.RoundMoney(d.WalletBalance + earning)
	d.TotalTrips++
	d.UpdatedAt = now
	if err := reloadDriverLoad(ctx, repos, &d); err != nil {
		return err
	}

	if err := repos.Users.Update(ctx, p); err != nil {
		return fmt.Errorf("debit passenger: %w", err)
	}
	if err := repos.Users.Update(ctx, d); err != nil {
		return fmt.Errorf("credit driver: %w", err)
	}

	for _, t := range []domain.Transaction{
		{UserID: p.ID, Type: domain.TxRidePayment, Amount: -r.Price},
		{UserID: d.ID, Type: domain.TxRideEarning, Amount: earning},
	} {
		t.ID = uuid.Must(uuid.NewV7()).String()
		t.RideID = r.ID
		t.Status = domain.TxCompleted
		t.CreatedAt = now
		if err := repos.Transactions.Insert(ctx, t); err != nil {
			return fmt.Errorf("insert %s: %w", t.Type, err)
		}
	}
	return nil
}

func (e *Engine) releaseDriver(ctx context.Context, repos store.Repos, driverID string) error {
	d, err := getUser(ctx, repos, "driver", driverID)
	if err != nil {
		return err
	}
	if err := reloadDriverLoad(ctx, repos, &d); err != nil {
		return err
	}
	d.UpdatedAt = e.clock()
	if err := repos.Users.Update(ctx, d); err != nil {
		return fmt.Errorf("release driver load: %w", err)
	}
	return nil
}
