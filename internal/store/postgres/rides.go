package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

const rideColumns = `
  id, passenger_id, driver_id, type, vehicle_type, pickup_address, dropoff_address, distance_km,
  price, estimated_weight_kg, status, rejected_by, parcel_description, parcel_weight, receiver_phone,
  cancellation_reason, created_at, updated_at, end_time`

type rideRepo struct {
	q       querier
	locking bool
}

func scanRide(row pgx.Row) (domain.Ride, error) {
	var r domain.Ride
	err := row.Scan(
		&r.ID, &r.PassengerID, &r.DriverID, &r.Type, &r.VehicleType, &r.PickupAddress, &r.DropoffAddress, &r.DistanceKm,
		&r.Price, &r.EstimatedWeightKg, &r.Status, &r.RejectedBy, &r.ParcelDescription, &r.ParcelWeight, &r.ReceiverPhone,
		&r.CancellationReason, &r.CreatedAt, &r.UpdatedAt, &r.EndTime,
	)
	if err != nil {
		return domain.Ride{}, notFound(err)
	}
	return r, nil
}

func (r *rideRepo) Get(ctx context.Context, id string) (domain.Ride, error) {
	q := `SELECT` + rideColumns + ` FROM rides WHERE id = $1` + lockClause(r.locking)
	return scanRide(r.q.QueryRow(ctx, q, id))
}

func (r *rideRepo) List(ctx context.Context, f store.RideFilter) ([]domain.Ride, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PassengerID != "" {
		add("passenger_id = $%d", f.PassengerID)
	}
	if f.DriverID != "" {
		add("driver_id = $%d", f.DriverID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if !f.CreatedAfter.IsZero() {
		add("created_at >= $%d", f.CreatedAfter)
	}
	if !f.CreatedBefore.IsZero() {
		add("created_at < $%d", f.CreatedBefore)
	}

	q := `SELECT` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY seq`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	var out []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ride)
	}
	return out, rows.Err()
}

func (r *rideRepo) Insert(ctx context.Context, ride domain.Ride) error {
	const q = `
INSERT INTO rides (` + rideColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, q, rideArgs(ride)...)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (r *rideRepo) Update(ctx context.Context, ride domain.Ride) error {
	tag, err := r.q.Exec(ctx, updateRideSQL, rideUpdateArgs(ride)...)
	if err != nil {
		return fmt.Errorf("update ride %s: %w", ride.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *rideRepo) UpdateIfStatus(ctx context.Context, ride domain.Ride, expected domain.RideStatus) error {
	args := append(rideUpdateArgs(ride), expected)
	tag, err := r.q.Exec(ctx, updateRideSQL+fmt.Sprintf(" AND status = $%d", len(args)), args...)
	if err != nil {
		return fmt.Errorf("update ride %s: %w", ride.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, ride.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check ride %s: %w", ride.ID, err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStatusConflict
}

const updateRideSQL = `
UPDATE rides
SET driver_id = $2,
    status = $3,
    rejected_by = $4,
    cancellation_reason = $5,
    updated_at = $6,
    end_time = $7
WHERE id = $1`

func rideUpdateArgs(r domain.Ride) []any {
	rejected := r.RejectedBy
	if rejected == nil {
		rejected = []string{}
	}
	return []any{r.ID, r.DriverID, r.Status, rejected, r.CancellationReason, r.UpdatedAt, r.EndTime}
}

func rideArgs(r domain.Ride) []any {
	rejected := r.RejectedBy
	if rejected == nil {
		rejected = []string{}
	}
	return []any{
		r.ID, r.PassengerID, r.DriverID, r.Type, r.VehicleType, r.PickupAddress, r.DropoffAddress, r.DistanceKm,
		r.Price, r.EstimatedWeightKg, r.Status, rejected, r.ParcelDescription, r.ParcelWeight, r.ReceiverPhone,
		r.CancellationReason, r.CreatedAt, r.UpdatedAt, r.EndTime,
	}
}
