package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

const userColumns = `
  id, name, email, phone, nin, role, password_hash, wallet_balance,
  status, suspension_reason, vehicle_type, license_plate, is_online, rating, total_trips,
  vehicle_capacity_kg, current_load_kg, load_status, created_at, updated_at`

type userRepo struct {
	q       querier
	locking bool
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.NIN, &u.Role, &u.PasswordHash, &u.WalletBalance,
		&u.Status, &u.SuspensionReason, &u.VehicleType, &u.LicensePlate, &u.IsOnline, &u.Rating, &u.TotalTrips,
		&u.VehicleCapacityKg, &u.CurrentLoadKg, &u.LoadStatus, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, notFound(err)
	}
	return u, nil
}

func (r *userRepo) Get(ctx context.Context, id string) (domain.User, error) {
	q := `SELECT` + userColumns + ` FROM users WHERE id = $1` + lockClause(r.locking)
	return scanUser(r.q.QueryRow(ctx, q, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	q := `SELECT` + userColumns + ` FROM users WHERE email = $1` + lockClause(r.locking)
	return scanUser(r.q.QueryRow(ctx, q, email))
}

func (r *userRepo) List(ctx context.Context, f store.UserFilter) ([]domain.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.OnlineOnly {
		where = append(where, "is_online")
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY seq`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepo) Insert(ctx context.Context, u domain.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, q,
		u.ID, u.Name, u.Email, u.Phone, u.NIN, u.Role, u.PasswordHash, u.WalletBalance,
		u.Status, u.SuspensionReason, u.VehicleType, u.LicensePlate, u.IsOnline, u.Rating, u.TotalTrips,
		u.VehicleCapacityKg, u.CurrentLoadKg, u.LoadStatus, u.CreatedAt, u.UpdatedAt,
	)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "users_nin_key" {
			return store.ErrDuplicateNIN
		}
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) Update(ctx context.Context, u domain.User) error {
	const q = `
UPDATE users
SET name = $2,
    phone = $3,
    password_hash = $4,
    wallet_balance = $5,
    status = $6,
    suspension_reason = $7,
    vehicle_type = $8,
    license_plate = $9,
    is_online = $10,
    rating = $11,
    total_trips = $12,
    vehicle_capacity_kg = $13,
    current_load_kg = $14,
    load_status = $15,
    updated_at = $16
WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		u.ID, u.Name, u.Phone, u.PasswordHash, u.WalletBalance, u.Status, u.SuspensionReason,
		u.VehicleType, u.LicensePlate, u.IsOnline, u.Rating, u.TotalTrips,
		u.VehicleCapacityKg, u.CurrentLoadKg, u.LoadStatus, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
