package dispatch

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/store"
)

// WithdrawFunds debits a driver's wallet at once and records a PENDING withdrawal. Paying it
// out is left to whoever processes pending withdrawals.
func (e *Engine) WithdrawFunds(ctx context.Context, driverID string, amount float64) (domain.User, domain.Transaction, error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return domain.User{}, domain.Transaction{}, apperr.Validation("amount must be positive").With("amount", amount)
	}

	var (
		driver domain.User
		tx     domain.Transaction
	)
	err := e.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		d, err := getUser(ctx, repos, "driver", driverID)
		if err != nil {
			return err
		}
		if !d.IsDriver() {
			return apperr.Forbidden("only drivers can withdraw earnings")
		}
		if err := requireActive(d); err != nil {
			return err
		}
		if amount > d.WalletBalance {
			return apperr.InsufficientFunds(amount, d.WalletBalance)
		}

		now := e.clock()
		d.WalletBalance = domain.RoundMoney(d.WalletBalance - amount)
		d.UpdatedAt = now
		if err := repos.Users.Update(ctx, d); err != nil {
			return fmt.Errorf("debit driver: %w", err)
		}
		tx = domain.Transaction{
			ID:        uuid.Must(uuid.NewV7()).String(),
			UserID:    d.ID,
			Type:      domain.TxWithdrawal,
			Status:    domain.TxPending,
			Amount:    -amount,
			CreatedAt: now,
		}
		if err := repos.Transactions.Insert(ctx, tx); err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}
		driver = d
		return e.activity.Record(ctx, repos.Activity, d.ID, activity.ActionWithdrawal, fmt.Sprintf("withdrawal %.2f", amount))
	})
	if err != nil {
		return domain.User{}, domain.Transaction{}, err
	}

	e.logger.Info("withdrawal requested", zap.String("driver_id", driverID), zap.Float64("amount", amount))
	e.events.Emit(ctx, events.Event{
		Type:    events.WithdrawalRequested,
		UserID:  driverID,
		Payload: tx,
		At:      tx.CreatedAt,
	})
	return driver, tx, nil
}
