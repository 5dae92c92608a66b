// Package registry owns user accounts: signup, driver recruitment, login, account status,
// driver availability and wallet top-ups.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store"
	"github.com/okadago/backend/internal/util"
)

const defaultDriverRating = 5.0

type Registry struct {
	store    store.Store
	settings settings.Provider
	jwt      *security.JWTManager
	refresh  store.RefreshTokenStore
	activity *activity.Log
	events   *events.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(
	st store.Store,
	sp settings.Provider,
	jwtm *security.JWTManager,
	refresh store.RefreshTokenStore,
	pub events.Publisher,
	logger *zap.Logger,
	opts ...Option,
) *Registry {
	r := &Registry{
		store:    st,
		settings: sp,
		jwt:      jwtm,
		refresh:  refresh,
		events:   events.NewEmitter(pub, logger),
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.activity = activity.NewLog(r.now)
	return r
}

type SignupInput struct {
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	NIN          string             `json:"nin"`
	Password     string             `json:"password"`
	Role         domain.Role        `json:"role"`
	VehicleType  domain.VehicleType `json:"vehicle_type"`
	LicensePlate string             `json:"license_plate"`
}

// Signup registers a passenger, or a driver when Role is DRIVER. Privileged roles cannot
// self-register.
func (r *Registry) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RolePassenger
	}
	if in.Role != domain.RolePassenger && in.Role != domain.RoleDriver {
		return domain.User{}, apperr.Validation("role must be PASSENGER or DRIVER").With("role", string(in.Role))
	}
	if err := util.ValidatePassword(in.Password); err != nil {
		return domain.User{}, apperr.Validation(err.Error()).With("field", "password")
	}
	u, err := r.newUser(in)
	if err != nil {
		return domain.User{}, err
	}
	if u.PasswordHash, err = util.HashPassword(in.Password); err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	if err := r.insert(ctx, u, activity.ActionSignup, "signed up as "+string(u.Role)); err != nil {
		return domain.User{}, err
	}
	r.logger.Info("user signed up", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

type RecruitInput struct {
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	NIN          string             `json:"nin"`
	VehicleType  domain.VehicleType `json:"vehicle_type"`
	LicensePlate string             `json:"license_plate"`
}

// RecruitDriver creates a driver account on behalf of an admin and returns the generated
// temporary password. The password is not retrievable afterwards.
func (r *Registry) RecruitDriver(ctx context.Context, actorID string, in RecruitInput) (domain.User, string, error) {
	u, err := r.newUser(SignupInput{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		NIN:          in.NIN,
		Role:         domain.RoleDriver,
		VehicleType:  in.VehicleType,
		LicensePlate: in.LicensePlate,
	})
	if err != nil {
		return domain.User{}, "", err
	}
	password, err := util.GenerateTempPassword(12)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("generate password: %w", err)
	}
	if u.PasswordHash, err = util.HashPassword(password); err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	details := fmt.Sprintf("recruited by %s with %s %s", actorID, u.VehicleType, u.LicensePlate)
	if err := r.insert(ctx, u, activity.ActionDriverRecruited, details); err != nil {
		return domain.User{}, "", err
	}
	r.logger.Info("driver recruited", zap.String("driver_id", u.ID), zap.String("actor_id", actorID))
	return u, password, nil
}

// EnsureAdmin creates the bootstrap admin unless an account with that email exists.
func (r *Registry) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if _, err := r.store.Repos().Users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if err := util.ValidatePassword(password); err != nil {
		return apperr.Validation("admin password: " + err.Error())
	}
	u, err := r.newUser(SignupInput{Name: "Administrator", Email: email, Role: domain.RoleAdmin})
	if err != nil {
		return err
	}
	if u.PasswordHash, err = util.HashPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := r.insert(ctx, u, activity.ActionSignup, "bootstrap admin"); err != nil {
		return err
	}
	r.logger.Info("bootstrap admin created", zap.String("user_id", u.ID))
	return nil
}

func (r *Registry) newUser(in SignupInput) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, apperr.Validation("name is required").With("field", "name")
	}
	email := normalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.User{}, apperr.Validation("a valid email is required").With("field", "email")
	}

	u := domain.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		Email:     email,
		Role:      in.Role,
		Status:    domain.StatusActive,
		CreatedAt: r.now().UTC(),
	}
	u.UpdatedAt = u.CreatedAt

	if strings.TrimSpace(in.Phone) != "" {
		phone, err := util.NormalizePhone(in.Phone)
		if err != nil {
			return domain.User{}, apperr.Validation(err.Error()).With("field", "phone")
		}
		u.Phone = phone
	}
	if strings.TrimSpace(in.NIN) != "" {
		nin, err := util.ValidateNIN(in.NIN)
		if err != nil {
			return domain.User{}, apperr.Validation(err.Error()).With("field", "nin")
		}
		u.NIN = nin
	}

	if in.Role == domain.RoleDriver {
		if !in.VehicleType.Valid() {
			return domain.User{}, apperr.Validation("vehicle_type must be OKADA, KEKE, MINIBUS or TRUCK").
				With("field", "vehicle_type")
		}
		u.VehicleType = in.VehicleType
		u.LicensePlate = strings.ToUpper(strings.TrimSpace(in.LicensePlate))
		u.VehicleCapacityKg = in.VehicleType.CapacityKg()
		u.Rating = defaultDriverRating
		u.SetLoad(0)
	}
	return u, nil
}

func (r *Registry) insert(ctx context.Context, u domain.User, action, details string) error {
	err := r.store.WithinTx(ctx, func(ctx context.Context, repos store.Repos) error {
		if err := repos.Users.Insert(ctx, u); err != nil {
			return err
		}
		return r.activity.Record(ctx, repos.Activity, u.ID, action, details)
	})
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return apperr.DuplicateUser("email", u.Email)
	case errors.Is(err, store.ErrDuplicateNIN):
		return apperr.DuplicateUser("nin", u.NIN)
	case err != nil:
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUser returns the account, or NOT_FOUND.
func (r *Registry) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := r.store.Repos().Users.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperr.NotFound("user", id)
	}
	return u, err
}

// ListOnlineDrivers returns ACTIVE drivers that are online, in registration order.
func (r *Registry) ListOnlineDrivers(ctx context.Context) ([]domain.User, error) {
	return r.store.Repos().Users.List(ctx, store.UserFilter{
		Role:       domain.RoleDriver,
		OnlineOnly: true,
		Status:     domain.StatusActive,
	})
}

// GetUserActivity returns the user's activity, newest first. limit <= 0 returns everything retained.
func (r *Registry) GetUserActivity(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	if _, err := r.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return r.store.Repos().Activity.ListByUser(ctx, userID, limit)
}
