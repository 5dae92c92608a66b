package dispatch

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/fraud"
	"github.com/okadago/backend/internal/store"
	"github.com/okadago/backend/internal/util"
)

type CreateRideInput struct {
	PassengerID    string             `json:"-"`
	Type           domain.RideType    `json:"type"`
	VehicleType    domain.VehicleType `json:"vehicle_type"`
	PickupAddress  string             `json:"pickup_address"`
	DropoffAddress string             `json:"dropoff_address"`
	DistanceKm     float64            `json:"distance_km"`

	ParcelDescription string `json:"parcel_description"`
	ParcelWeight      string `json:"parcel_weight"`
	ReceiverPhone     string `json:"receiver_phone"`
}

func (in *CreateRideInput) normalize() error {
	in.PickupAddress = strings.TrimSpace(in.PickupAddress)
	in.DropoffAddress = strings.TrimSpace(in.DropoffAddress)
	if in.Type == "" {
		in.Type = domain.RideTypeRide
	}
	switch {
	case in.PassengerID == "":
		return apperr.Validation("passenger is required").With("field", "passenger_id")
	case !in.Type.Valid():
		return apperr.Validation("type must be RIDE or LOGISTICS").With("field", "type")
	case !in.VehicleType.Valid():
		return apperr.Validation("vehicle_type must be OKADA, KEKE, MINIBUS or TRUCK").With("field", "vehicle_type")
	case in.PickupAddress == "":
		return apperr.Validation("pickup address is required").With("field", "pickup_address")
	case in.DropoffAddress == "":
		return apperr.Validation("dropoff address is required").With("field", "dropoff_address")
	case in.DistanceKm < 0 || math.IsNaN(in.DistanceKm) || math.IsInf(in.DistanceKm, 0):
		return apperr.Validation("distance must be a non-negative number").With("field", "distance_km")
	}
	if in.Type == domain.RideTypeLogistics && strings.TrimSpace(in.ReceiverPhone) != "" {
		phone, err := util.NormalizePhone(in.ReceiverPhone)
		if err != nil {
			return apperr.Validation(err.Error()).With("field", "receiver_phone")
		}
		in.ReceiverPhone = phone
	}
	if in.Type == domain.RideTypeRide {
		in.ParcelDescription, in.ParcelWeight, in.ReceiverPhone = "", "", ""
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// EstimateWeightKg is 75 kg for a passenger ride. For a parcel it is the number that
// parcelWeight starts with ("12.5kg" is 12.5), or 10 kg when there is none. A zero weight
// ("0kg") also gets 10 kg: an accepted parcel always adds load to the driver.
func EstimateWeightKg(t domain.RideType, parcelWeight string) float64 {
	if t == domain.RideTypeRide {
		return passengerWeightKg
	}
	m := leadingNumber.FindStringSubmatch(parcelWeight)
	if m == nil {
		return defaultParcelWeightKg
	}
	kg, err := strconv.ParseFloat(m[1], 64)
	if err != nil || kg <= 0 {
		return defaultParcelWeightKg
	}
	return kg
}

// CreateRide books a ride in PENDING. The fraud trip-wire runs first inside the booking
// transaction: when it trips the passenger's suspension is committed and the call fails
// with FRAUD_SUSPENSION without creating a ride.
func (e *Engine) CreateRide(ctx context.Context, in CreateRideInput) (domain.Ride, error) {
	if err := in.normalize(); err != nil {
		return domain.Ride{}, err
	}
	if err := e.checkGates(ctx); err != nil {
		return domain.Ride{}, err
	}

	var (
		ride      domain.Ride
		suspended *domain.User
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		p, err := getUser(ctx, repos, "passenger", in.PassengerID)
		if err != nil {
			return err
		}
		if err := requireActive(p); err != nil {
			return err
		}

		now := e.clock()
		tripped, count, err := e.guard.Trips(ctx, repos.Rides, p.ID, now)
		if err != nil {
			return err
		}
		if tripped {
			fraud.Suspend(&p, now)
			if err := repos.Users.Update(ctx, p); err != nil {
				return fmt.Errorf("suspend passenger: %w", err)
			}
			details := fmt.Sprintf("%d cancellations within %s", count, e.guard.Window)
			suspended = &p
			return e.activity.Record(ctx, repos.Activity, p.ID, activity.ActionFraudSuspended, details)
		}

		price, err := e.fares.CalculateFare(ctx, in.VehicleType, in.DistanceKm)
		if err != nil {
			return err
		}
		ride = domain.Ride{
			ID:                uuid.Must(uuid.NewV7()).String(),
			PassengerID:       p.ID,
			Type:              in.Type,
			VehicleType:       in.VehicleType,
			PickupAddress:     in.PickupAddress,
			DropoffAddress:    in.DropoffAddress,
			DistanceKm:        in.DistanceKm,
			Price:             price,
			EstimatedWeightKg: EstimateWeightKg(in.Type, in.ParcelWeight),
			Status:            domain.RidePending,
			ParcelDescription: in.ParcelDescription,
			ParcelWeight:      in.ParcelWeight,
			ReceiverPhone:     in.ReceiverPhone,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := repos.Rides.Insert(ctx, ride); err != nil {
			return fmt.Errorf("insert ride: %w", err)
		}
		details := fmt.Sprintf("%s %s %s -> %s (%.2f)", ride.Type, ride.VehicleType, ride.PickupAddress, ride.DropoffAddress, ride.Price)
		return e.activity.Record(ctx, repos.Activity, p.ID, activity.ActionRideCreated, details)
	})
	if err != nil {
		return domain.Ride{}, err
	}

	if suspended != nil {
		e.logger.Warn("passenger auto-suspended", zap.String("passenger_id", suspended.ID))
		e.events.Emit(ctx, events.Event{
			Type:    events.UserStatusChanged,
			UserID:  suspended.ID,
			Payload: *suspended,
			At:      suspended.UpdatedAt,
		})
		return domain.Ride{}, apperr.FraudSuspension(fraud.SuspensionReason)
	}

	e.logger.Info("ride created",
		zap.String("ride_id", ride.ID),
		zap.String("passenger_id", ride.PassengerID),
		zap.Float64("price", ride.Price),
	)
	e.events.Emit(ctx, events.ForRide(events.RideCreated, ride, ride.CreatedAt))
	return ride, nil
}

// checkGates applies the operator switches: maintenance mode and the IP blocklist.
func (e *Engine) checkGates(ctx context.Context) error {
	on, err := e.settings.MaintenanceMode(ctx)
	if err != nil {
		return fmt.Errorf("read maintenance flag: %w", err)
	}
	if on {
		return apperr.New(apperr.KindMaintenance, "bookings are paused for maintenance")
	}
	if ip := activity.IPFrom(ctx); ip != "" {
		blocked, err := e.settings.IsIPBlocked(ctx, ip)
		if err != nil {
			return fmt.Errorf("check blocked ip: %w", err)
		}
		if blocked {
			return apperr.IPBlocked(ip)
		}
	}
	return nil
}

// ListOfferableRides returns PENDING rides the driver has not rejected, oldest first.
func (e *Engine) ListOfferableRides(ctx context.Context, driverID string) ([]domain.Ride, error) {
	repos := e.store.Repos()
	d, err := getUser(ctx, repos, "driver", driverID)
	if err != nil {
		return nil, err
	}
	if !d.IsDriver() {
		return nil, apperr.Forbidden("only drivers receive ride offers")
	}
	pending, err := repos.Rides.List(ctx, store.RideFilter{Statuses: []domain.RideStatus{domain.RidePending}})
	if err != nil {
		return nil, fmt.Errorf("list pending rides: %w", err)
	}
	out := make([]domain.Ride, 0, len(pending))
	for _, r := range pending {
		if !r.RejectedByDriver(driverID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListActiveRides returns the rides a user is currently involved in. Passengers see their
// PENDING, ACCEPTED and IN_PROGRESS rides, drivers their ACCEPTED and IN_PROGRESS rides,
// staff and admins every non-terminal ride.
func (e *Engine) ListActiveRides(ctx context.Context, role domain.Role, userID string) ([]domain.Ride, error) {
	f := store.RideFilter{
		Statuses: []domain.RideStatus{domain.RidePending, domain.RideAccepted, domain.RideInProgress},
	}
	switch role {
	case domain.RolePassenger:
		f.PassengerID = userID
	case domain.RoleDriver:
		f.DriverID = userID
		f.Statuses = []domain.RideStatus{domain.RideAccepted, domain.RideInProgress}
	case domain.RoleAdmin, domain.RoleStaff:
	default:
		return nil, apperr.Validation("unknown role").With("role", string(role))
	}
	rides, err := e.store.Repos().Rides.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list active rides: %w", err)
	}
	return rides, nil
}
