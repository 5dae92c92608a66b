// Package sweeper cancels rides that stayed PENDING longer than the configured timeout.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

type Advancer interface {
	AdvanceStatus(ctx context.Context, in dispatch.AdvanceInput) (domain.Ride, error)
}

type Sweeper struct {
	rides    store.RideRepository
	engine   Advancer
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func New(rides store.RideRepository, engine Advancer, timeout, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		rides:    rides,
		engine:   engine,
		timeout:  timeout,
		interval: interval,
		logger:   logger.Named("sweeper"),
		now:      time.Now,
	}
}

// Enabled is false when no timeout is configured.
func (s *Sweeper) Enabled() bool { return s.timeout > 0 && s.interval > 0 }

// Run sweeps once per interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.logger.Info("pending ride sweeper started",
		zap.Duration("timeout", s.timeout),
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep cancels every PENDING ride created before now minus the timeout and returns how many
// it cancelled. Rides accepted in the meantime are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.timeout)
	stale, err := s.rides.List(ctx, store.RideFilter{
		Statuses:      []domain.RideStatus{domain.RidePending},
		CreatedBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("list stale rides: %w", err)
	}

	reason := fmt.Sprintf("no driver accepted within %s", s.timeout)
	cancelled := 0
	for _, r := range stale {
		_, err := s.engine.AdvanceStatus(ctx, dispatch.AdvanceInput{
			RideID:  r.ID,
			Status:  domain.RideCancelled,
			ActorID: dispatch.SystemActor,
			Reason:  reason,
		})
		if apperr.Is(err, apperr.KindInvalidTransition) {
			continue
		}
		if err != nil {
			return cancelled, fmt.Errorf("cancel ride %s: %w", r.ID, err)
		}
		cancelled++
	}
	if cancelled > 0 {
		s.logger.Info("cancelled stale rides", zap.Int("count", cancelled))
	}
	return cancelled, nil
}
