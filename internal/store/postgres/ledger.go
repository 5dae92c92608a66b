package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

type txRepo struct {
	q querier
}

func (r *txRepo) Insert(ctx context.Context, t domain.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, ride_id, type, status, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.q.Exec(ctx, q, t.ID, t.UserID, t.RideID, t.Type, t.Status, t.Amount, t.CreatedAt); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *txRepo) List(ctx context.Context, f store.TransactionFilter) ([]domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT id, user_id, ride_id, type, status, amount, created_at FROM transactions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY seq`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.RideID, &t.Type, &t.Status, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type activityRepo struct {
	q         querier
	retention int
}

func (r *activityRepo) Append(ctx context.Context, rec domain.ActivityRecord) error {
	const insert = `
INSERT INTO activity_log (id, user_id, action, details, ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.Exec(ctx, insert, rec.ID, rec.UserID, rec.Action, rec.Details, rec.IP, rec.Timestamp); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	// Keep only the newest `retention` rows.
	const evict = `
DELETE FROM activity_log
WHERE seq <= (SELECT seq FROM activity_log ORDER BY seq DESC OFFSET $1 LIMIT 1)`
	if _, err := r.q.Exec(ctx, evict, r.retention); err != nil {
		return fmt.Errorf("evict activity: %w", err)
	}
	return nil
}

func (r *activityRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	const q = `
SELECT id, user_id, action, details, ip, created_at
FROM activity_log
WHERE user_id = $1
ORDER BY seq DESC
LIMIT $2`
	return r.list(ctx, q, userID, limitOrAll(limit))
}

func (r *activityRepo) List(ctx context.Context, limit int) ([]domain.ActivityRecord, error) {
	const q = `
SELECT id, user_id, action, details, ip, created_at
FROM activity_log
ORDER BY seq DESC
LIMIT $1`
	return r.list(ctx, q, limitOrAll(limit))
}

func (r *activityRepo) list(ctx context.Context, q string, args ...any) ([]domain.ActivityRecord, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityRecord
	for rows.Next() {
		var a domain.ActivityRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Details, &a.IP, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// limitOrAll maps a non-positive limit to NULL, which postgres treats as LIMIT ALL.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
