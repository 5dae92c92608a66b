package registry

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/store"
	"github.com/okadago/backend/internal/util"
)

// Login verifies the password and issues a token pair. Requests from a blocked IP and
// banned or suspended accounts are refused with ACCOUNT_BLOCKED.
func (r *Registry) Login(ctx context.Context, email, password string) (domain.User, security.Tokens, error) {
	if err := r.checkIP(ctx); err != nil {
		return domain.User{}, security.Tokens{}, err
	}
	u, err := r.store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) || (err == nil && !util.ComparePassword(u.PasswordHash, password)) {
		return domain.User{}, security.Tokens{}, apperr.New(apperr.KindUnauthorized, "invalid email or password")
	}
	if err != nil {
		return domain.User{}, security.Tokens{}, fmt.Errorf("lookup user: %w", err)
	}
	if u.Blocked() {
		return domain.User{}, security.Tokens{}, apperr.AccountBlocked(string(u.Status), u.SuspensionReason)
	}

	tokens, err := r.issue(ctx, u)
	if err != nil {
		return domain.User{}, security.Tokens{}, err
	}
	if err := r.activity.Record(ctx, r.store.Repos().Activity, u.ID, activity.ActionLogin, "password login"); err != nil {
		r.logger.Warn("record login", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works once.
func (r *Registry) Refresh(ctx context.Context, refreshToken string) (security.Tokens, error) {
	claims, err := r.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return security.Tokens{}, apperr.Wrap(apperr.KindUnauthorized, "invalid refresh token", err)
	}
	if err := r.refresh.Consume(ctx, claims.UserID, claims.JTI); err != nil {
		if errors.Is(err, store.ErrRefreshInvalid) {
			return security.Tokens{}, apperr.New(apperr.KindUnauthorized, "refresh token already used or revoked")
		}
		return security.Tokens{}, fmt.Errorf("consume refresh token: %w", err)
	}
	u, err := r.GetUser(ctx, claims.UserID)
	if err != nil {
		return security.Tokens{}, err
	}
	if u.Blocked() {
		return security.Tokens{}, apperr.AccountBlocked(string(u.Status), u.SuspensionReason)
	}
	return r.issue(ctx, u)
}

// Logout revokes every refresh token of the user.
func (r *Registry) Logout(ctx context.Context, userID string) error {
	if err := r.refresh.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (r *Registry) issue(ctx context.Context, u domain.User) (security.Tokens, error) {
	tokens, claims, err := r.jwt.Issue(u.Role, u.ID)
	if err != nil {
		return security.Tokens{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := r.refresh.Put(ctx, u.ID, claims.JTI); err != nil {
		return security.Tokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

func (r *Registry) checkIP(ctx context.Context) error {
	ip := activity.IPFrom(ctx)
	if ip == "" {
		return nil
	}
	blocked, err := r.settings.IsIPBlocked(ctx, ip)
	if err != nil {
		return fmt.Errorf("check blocked ip: %w", err)
	}
	if blocked {
		return apperr.IPBlocked(ip)
	}
	return nil
}

// UpdateUserStatus moves an account between ACTIVE, BANNED and SUSPENDED. Activating clears
// the suspension reason; a banned or suspended driver is taken offline.
func (r *Registry) UpdateUserStatus(ctx context.Context, actorID, userID string, status domain.AccountStatus, reason string) (domain.User, error) {
	if !status.Valid() {
		return domain.User{}, apperr.Validation("status must be ACTIVE, BANNED or SUSPENDED").With("status", string(status))
	}
	if actorID == userID {
		return domain.User{}, apperr.Forbidden("cannot change your own account status")
	}

	var updated domain.User
	err := r.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		u, err := repos.Users.Get(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user", userID)
		}
		if err != nil {
			return err
		}
		from := u.Status
		u.Status = status
		u.SuspensionReason = ""
		if status != domain.StatusActive {
			u.SuspensionReason = reason
			u.IsOnline = false
		}
		u.UpdatedAt = r.now().UTC()
		if err := repos.Users.Update(ctx, u); err != nil {
			return err
		}
		details := fmt.Sprintf("%s -> %s by %s", from, status, actorID)
		if reason != "" {
			details += ": " + reason
		}
		updated = u
		return r.activity.Record(ctx, repos.Activity, u.ID, activity.ActionStatusChanged, details)
	})
	if err != nil {
		return domain.User{}, err
	}

	r.logger.Info("user status changed",
		zap.String("user_id", userID),
		zap.String("status", string(status)),
		zap.String("actor_id", actorID),
	)
	r.events.Emit(ctx, events.Event{
		Type:    events.UserStatusChanged,
		UserID:  userID,
		Payload: updated,
		At:      r.now().UTC(),
	})
	return updated, nil
}

// SetOnline toggles a driver's availability. Blocked drivers cannot go online.
func (r *Registry) SetOnline(ctx context.Context, driverID string, online bool) (domain.User, error) {
	var updated domain.User
	err := r.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		u, err := repos.Users.Get(ctx, driverID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("driver", driverID)
		}
		if err != nil {
			return err
		}
		if !u.IsDriver() {
			return apperr.Forbidden("only drivers can change availability")
		}
		if online && u.Blocked() {
			return apperr.AccountBlocked(string(u.Status), u.SuspensionReason)
		}
		if u.IsOnline == online {
			updated = u
			return nil
		}
		u.IsOnline = online
		u.UpdatedAt = r.now().UTC()
		if err := repos.Users.Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return r.activity.Record(ctx, repos.Activity, u.ID, activity.ActionOnlineChanged, fmt.Sprintf("online=%t", online))
	})
	if err != nil {
		return domain.User{}, err
	}
	r.events.Emit(ctx, events.Event{
		Type:    events.DriverOnlineChanged,
		UserID:  driverID,
		Payload: map[string]any{"driver_id": driverID, "is_online": online},
		At:      r.now().UTC(),
	})
	return updated, nil
}

// FundWallet credits the wallet and records a COMPLETED deposit. There is no payment rail
// behind it; the top-up is accepted as is.
func (r *Registry) FundWallet(ctx context.Context, userID string, amount float64) (domain.User, error) {
	if math.IsInf(amount, 0) || !(domain.RoundMoney(amount) > 0) {
		return domain.User{}, apperr.Validation("amount must be positive").With("amount", amount)
	}
	amount = domain.RoundMoney(amount)
	var updated domain.User
	err := r.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		u, err := repos.Users.Get(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("user", userID)
		}
		if err != nil {
			return err
		}
		if u.Blocked() {
			return apperr.AccountBlocked(string(u.Status), u.SuspensionReason)
		}
		now := r.now().UTC()
		u.WalletBalance = domain.RoundMoney(u.WalletBalance + amount)
		u.UpdatedAt = now
		if err := repos.Users.Update(ctx, u); err != nil {
			return err
		}
		err = repos.Transactions.Insert(ctx, domain.Transaction{
			ID:        uuid.Must(uuid.NewV7()).String(),
			UserID:    u.ID,
			Type:      domain.TxDeposit,
			Status:    domain.TxCompleted,
			Amount:    amount,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		updated = u
		return r.activity.Record(ctx, repos.Activity, u.ID, activity.ActionWalletFunded, fmt.Sprintf("deposit %.2f", amount))
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}
