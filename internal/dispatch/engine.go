// Package dispatch is the ride lifecycle: booking, driver matching, status transitions,
// wallet settlement and driver load accounting. Every command runs in one store transaction;
// events are published only after it commits.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/fare"
	"github.com/okadago/backend/internal/fraud"
	"github.com/okadago/backend/internal/settings"
	"github.com/okadago/backend/internal/store"
)

const (
	// DriverShare is the part of a completed fare credited to the driver; the rest is commission.
	DriverShare = 0.8

	passengerWeightKg     = 75
	defaultParcelWeightKg = 10
)

type Engine struct {
	store    store.Store
	fares    *fare.Calculator
	settings settings.Provider
	guard    fraud.Guard
	activity *activity.Log
	events   *events.Emitter
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFraudGuard replaces the default one-hour, three-cancellation rule.
func WithFraudGuard(g fraud.Guard) Option {
	return func(e *Engine) { e.guard = g }
}

func New(st store.Store, sp settings.Provider, pub events.Publisher, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		fares:    fare.NewCalculator(sp),
		settings: sp,
		guard:    fraud.NewGuard(),
		events:   events.NewEmitter(pub, logger),
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.activity = activity.NewLog(e.now)
	return e
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

func getUser(ctx context.Context, repos store.Repos, entity, id string) (domain.User, error) {
	u, err := repos.Users.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, apperr.NotFound(entity, id)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load %s %s: %w", entity, id, err)
	}
	return u, nil
}

func getRide(ctx context.Context, repos store.Repos, id string) (domain.Ride, error) {
	r, err := repos.Rides.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Ride{}, apperr.NotFound("ride", id)
	}
	if err != nil {
		return domain.Ride{}, fmt.Errorf("load ride %s: %w", id, err)
	}
	return r, nil
}

func requireActive(u domain.User) error {
	if u.Blocked() {
		return apperr.AccountBlocked(string(u.Status), u.SuspensionReason)
	}
	return nil
}

// reloadDriverLoad recomputes the driver's load from its ACCEPTED and IN_PROGRESS rides.
// With none left the load is 0 and EMPTY.
func reloadDriverLoad(ctx context.Context, repos store.Repos, d *domain.User) error {
	active, err := repos.Rides.List(ctx, store.RideFilter{
		DriverID: d.ID,
		Statuses: []domain.RideStatus{domain.RideAccepted, domain.RideInProgress},
	})
	if err != nil {
		return fmt.Errorf("list active rides of %s: %w", d.ID, err)
	}
	var kg float64
	for _, r := range active {
		kg += r.EstimatedWeightKg
	}
	d.SetLoad(kg)
	return nil
}
