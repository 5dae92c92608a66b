package memory

import (
	"context"
	"slices"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

type userRepo struct{ v *view }

func (r userRepo) Get(_ context.Context, id string) (domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.v.read(func(st *state) { u, ok = st.users[id] })
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.v.read(func(st *state) {
		for _, id := range st.userOrder {
			if st.users[id].Email == email {
				u, ok = st.users[id], true
				return
			}
		}
	})
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r userRepo) List(_ context.Context, f store.UserFilter) ([]domain.User, error) {
	var out []domain.User
	r.v.read(func(st *state) {
		for _, id := range st.userOrder {
			u := st.users[id]
			if f.Role != "" && u.Role != f.Role {
				continue
			}
			if f.OnlineOnly && !u.IsOnline {
				continue
			}
			if f.Status != "" && u.Status != f.Status {
				continue
			}
			out = append(out, u)
		}
	})
	return out, nil
}

func (r userRepo) Insert(_ context.Context, u domain.User) error {
	return r.v.write(func(st *state) error {
		if _, exists := st.users[u.ID]; exists {
			return store.ErrDuplicateEmail
		}
		for _, other := range st.users {
			if other.Email == u.Email {
				return store.ErrDuplicateEmail
			}
			if u.NIN != "" && other.NIN == u.NIN {
				return store.ErrDuplicateNIN
			}
		}
		st.users[u.ID] = u
		st.userOrder = append(st.userOrder, u.ID)
		return nil
	})
}

func (r userRepo) Update(_ context.Context, u domain.User) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.users[u.ID]; !ok {
			return store.ErrNotFound
		}
		st.users[u.ID] = u
		return nil
	})
}

type rideRepo struct{ v *view }

func (r rideRepo) Get(_ context.Context, id string) (domain.Ride, error) {
	var (
		ride domain.Ride
		ok   bool
	)
	r.v.read(func(st *state) { ride, ok = st.rides[id] })
	if !ok {
		return domain.Ride{}, store.ErrNotFound
	}
	return ride.Clone(), nil
}

func (r rideRepo) List(_ context.Context, f store.RideFilter) ([]domain.Ride, error) {
	var out []domain.Ride
	r.v.read(func(st *state) {
		for _, id := range st.rideOrder {
			ride := st.rides[id]
			if matchRide(ride, f) {
				out = append(out, ride.Clone())
			}
		}
	})
	return out, nil
}

func matchRide(r domain.Ride, f store.RideFilter) bool {
	if f.PassengerID != "" && r.PassengerID != f.PassengerID {
		return false
	}
	if f.DriverID != "" && r.DriverID != f.DriverID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if !f.CreatedAfter.IsZero() && r.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !r.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

func (r rideRepo) Insert(_ context.Context, ride domain.Ride) error {
	return r.v.write(func(st *state) error {
		if _, exists := st.rides[ride.ID]; exists {
			return store.ErrStatusConflict
		}
		st.rides[ride.ID] = ride.Clone()
		st.rideOrder = append(st.rideOrder, ride.ID)
		return nil
	})
}

func (r rideRepo) Update(_ context.Context, ride domain.Ride) error {
	return r.v.write(func(st *state) error {
		if _, ok := st.rides[ride.ID]; !ok {
			return store.ErrNotFound
		}
		st.rides[ride.ID] = ride.Clone()
		return nil
	})
}

func (r rideRepo) UpdateIfStatus(_ context.Context, ride domain.Ride, expected domain.RideStatus) error {
	return r.v.write(func(st *state) error {
		cur, ok := st.rides[ride.ID]
		if !ok {
			return store.ErrNotFound
		}
		if cur.Status != expected {
			return store.ErrStatusConflict
		}
		st.rides[ride.ID] = ride.Clone()
		return nil
	})
}

type txRepo struct{ v *view }

func (r txRepo) Insert(_ context.Context, t domain.Transaction) error {
	return r.v.write(func(st *state) error {
		st.txs = append(st.txs, t)
		return nil
	})
}

func (r txRepo) List(_ context.Context, f store.TransactionFilter) ([]domain.Transaction, error) {
	var out []domain.Transaction
	r.v.read(func(st *state) {
		for _, t := range st.txs {
			if f.UserID != "" && t.UserID != f.UserID {
				continue
			}
			if f.Type != "" && t.Type != f.Type {
				continue
			}
			if f.Status != "" && t.Status != f.Status {
				continue
			}
			out = append(out, t)
		}
	})
	return out, nil
}

type activityRepo struct{ v *view }

func (r activityRepo) Append(_ context.Context, rec domain.ActivityRecord) error {
	return r.v.write(func(st *state) error {
		st.activity = append(st.activity, rec)
		if over := len(st.activity) - r.v.s.retention; over > 0 {
			st.activity = slices.Clone(st.activity[over:])
		}
		return nil
	})
}

func (r activityRepo) ListByUser(_ context.Context, userID string, limit int) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	r.v.read(func(st *state) {
		for i := len(st.activity) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				return
			}
			if st.activity[i].UserID == userID {
				out = append(out, st.activity[i])
			}
		}
	})
	return out, nil
}

func (r activityRepo) List(_ context.Context, limit int) ([]domain.ActivityRecord, error) {
	var out []domain.ActivityRecord
	r.v.read(func(st *state) {
		for i := len(st.activity) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				return
			}
			out = append(out, st.activity[i])
		}
	})
	return out, nil
}
