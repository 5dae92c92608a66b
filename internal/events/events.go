// Package events carries ride and account notifications to websocket clients and the broker.
// Events are published after the store transaction that produced them has committed.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/domain"
)

type Type string

const (
	RideCreated         Type = "ride.created"
	RideAccepted        Type = "ride.accepted"
	RideRejected        Type = "ride.rejected"
	RideStatusChanged   Type = "ride.status_changed"
	DriverOnlineChanged Type = "driver.online_changed"
	UserStatusChanged   Type = "user.status_changed"
	WithdrawalRequested Type = "wallet.withdrawal_requested"
)

// Event is one notification. PassengerID and DriverID name the parties that receive it;
// staff and admins receive every event.
type Event struct {
	Type        Type      `json:"type"`
	RideID      string    `json:"ride_id,omitempty"`
	PassengerID string    `json:"passenger_id,omitempty"`
	DriverID    string    `json:"driver_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Payload     any       `json:"payload,omitempty"`
	At          time.Time `json:"at"`
}

// ForRide builds an event addressed to the ride's passenger and driver.
func ForRide(t Type, r domain.Ride, at time.Time) Event {
	return Event{
		Type:        t,
		RideID:      r.ID,
		PassengerID: r.PassengerID,
		DriverID:    r.DriverID,
		Payload:     r,
		At:          at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emitter publishes on behalf of a service and only logs failures, so a broker outage
// never fails a command that already committed.
type Emitter struct {
	pub    Publisher
	logger *zap.Logger
}

func NewEmitter(pub Publisher, logger *zap.Logger) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	return &Emitter{pub: pub, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, evs ...Event) {
	for _, ev := range evs {
		if err := e.pub.Publish(ctx, ev); err != nil {
			e.logger.Warn("publish event failed",
				zap.String("type", string(ev.Type)),
				zap.String("ride_id", ev.RideID),
				zap.Error(err),
			)
		}
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
