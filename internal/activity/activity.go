// Package activity writes and reads the audit trail of user actions.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

// Actions recorded by the core.
const (
	ActionSignup          = "SIGNUP"
	ActionLogin           = "LOGIN"
	ActionDriverRecruited = "DRIVER_RECRUITED"
	ActionStatusChanged   = "STATUS_CHANGED"
	ActionFraudSuspended  = "FRAUD_SUSPENDED"
	ActionOnlineChanged   = "ONLINE_CHANGED"
	ActionWalletFunded    = "WALLET_FUNDED"
	ActionRideCreated     = "RIDE_CREATED"
	ActionRideAccepted    = "RIDE_ACCEPTED"
	ActionRideRejected    = "RIDE_REJECTED"
	ActionRideAssigned    = "RIDE_ASSIGNED"
	ActionRideStarted     = "RIDE_STARTED"
	ActionRideCompleted   = "RIDE_COMPLETED"
	ActionRideCancelled   = "RIDE_CANCELLED"
	ActionWithdrawal      = "WITHDRAWAL_REQUESTED"
)

type ctxKey struct{}

// WithIP stores the client address that activity records made under ctx carry.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// IPFrom returns the client address stored by WithIP, or "".
func IPFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Log appends records through whichever repository the caller holds, so entries written
// inside a store transaction commit or roll back with it.
type Log struct {
	now func() time.Time
}

func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

func (l *Log) Record(ctx context.Context, repo store.ActivityLogRepository, userID, action, details string) error {
	rec := domain.ActivityRecord{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: l.now().UTC(),
		IP:        IPFrom(ctx),
	}
	if err := repo.Append(ctx, rec); err != nil {
		return fmt.Errorf("record %s for %s: %w", action, userID, err)
	}
	return nil
}
