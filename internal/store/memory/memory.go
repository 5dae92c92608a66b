// Package memory is an in-process implementation of store.Store. Transactions run against a
// private copy of the collections under an exclusive lock and replace the live state on commit.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

type state struct {
	users     map[string]domain.User
	userOrder []string
	rides     map[string]domain.Ride
	rideOrder []string
	txs       []domain.Transaction
	activity  []domain.ActivityRecord
}

func newState() *state {
	return &state{
		users: make(map[string]domain.User),
		rides: make(map[string]domain.Ride),
	}
}

// clone copies the collections. Stored values never share mutable state with callers,
// so copying the maps is enough.
func (s *state) clone() *state {
	return &state{
		users:     maps.Clone(s.users),
		userOrder: slices.Clone(s.userOrder),
		rides:     maps.Clone(s.rides),
		rideOrder: slices.Clone(s.rideOrder),
		txs:       slices.Clone(s.txs),
		activity:  slices.Clone(s.activity),
	}
}

type Store struct {
	mu        sync.RWMutex
	st        *state
	retention int
}

// New returns an empty store keeping at most retention activity records (store.DefaultActivityRetention when <= 0).
func New(retention int) *Store {
	if retention <= 0 {
		retention = store.DefaultActivityRetention
	}
	return &Store{st: newState(), retention: retention}
}

func (s *Store) Repos() store.Repos { return (&view{s: s}).repos() }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, (&view{s: s, tx: work}).repos()); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close() {}

// view routes repository calls either to the live state under the store lock or,
// inside WithinTx, to the transaction's working copy.
type view struct {
	s  *Store
	tx *state
}

func (v *view) repos() store.Repos {
	return store.Repos{
		Users:        userRepo{v},
		Rides:        rideRepo{v},
		Transactions: txRepo{v},
		Activity:     activityRepo{v},
	}
}

func (v *view) read(fn func(st *state)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	fn(v.s.st)
}

func (v *view) write(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}
