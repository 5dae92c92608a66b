// Package store defines the persistence ports of the dispatch core. Each collection is a flat,
// insertion-ordered set of records keyed by id; referential integrity is checked by callers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/okadago/backend/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateNIN   = errors.New("nin already registered")
	// ErrStatusConflict is returned by RideRepository.UpdateIfStatus when the stored status
	// no longer matches the expected one.
	ErrStatusConflict = errors.New("ride status changed concurrently")
	ErrRefreshInvalid = errors.New("refresh token invalid or already used")
)

type UserFilter struct {
	Role       domain.Role
	OnlineOnly bool
	Status     domain.AccountStatus
}

type RideFilter struct {
	PassengerID  string
	DriverID     string
	Statuses     []domain.RideStatus
	CreatedAfter time.Time
	// CreatedBefore is exclusive; zero means unbounded.
	CreatedBefore time.Time
}

type TransactionFilter struct {
	UserID string
	Type   domain.TransactionType
	Status domain.TransactionStatus
}

type UserRepository interface {
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, f UserFilter) ([]domain.User, error)
	Insert(ctx context.Context, u domain.User) error
	Update(ctx context.Context, u domain.User) error
}

type RideRepository interface {
	Get(ctx context.Context, id string) (domain.Ride, error)
	List(ctx context.Context, f RideFilter) ([]domain.Ride, error)
	Insert(ctx context.Context, r domain.Ride) error
	Update(ctx context.Context, r domain.Ride) error
	// UpdateIfStatus writes r only while the stored ride still has status expected.
	UpdateIfStatus(ctx context.Context, r domain.Ride, expected domain.RideStatus) error
}

type TransactionRepository interface {
	Insert(ctx context.Context, t domain.Transaction) error
	List(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error)
}

type ActivityLogRepository interface {
	// Append stores rec and evicts the oldest records beyond the configured retention.
	Append(ctx context.Context, rec domain.ActivityRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.ActivityRecord, error)
	List(ctx context.Context, limit int) ([]domain.ActivityRecord, error)
}

// Repos groups the four collections.
type Repos struct {
	Users        UserRepository
	Rides        RideRepository
	Transactions TransactionRepository
	Activity     ActivityLogRepository
}

// Store hands out repositories. Writes spanning several records go through WithinTx:
// either every write in fn is applied or none is.
type Store interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Close()
}

// DefaultActivityRetention is the number of activity records kept.
const DefaultActivityRetention = 1000

// RefreshTokenStore tracks issued refresh tokens by JTI.
type RefreshTokenStore interface {
	Put(ctx context.Context, userID, jti string) error
	// Consume removes the JTI, failing with ErrRefreshInvalid if it is unknown.
	Consume(ctx context.Context, userID, jti string) error
	RevokeAll(ctx context.Context, userID string) error
}
