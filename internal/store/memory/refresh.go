package memory

import (
	"context"
	"sync"

	"github.com/okadago/backend/internal/store"
)

// RefreshTokens is the in-process counterpart of redisstore.RefreshStore. Entries never expire;
// the JWT expiry still bounds token lifetime.
type RefreshTokens struct {
	mu   sync.Mutex
	jtis map[string]map[string]struct{}
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{jtis: make(map[string]map[string]struct{})}
}

func (r *RefreshTokens) Put(_ context.Context, userID, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.jtis[userID]
	if !ok {
		set = make(map[string]struct{})
		r.jtis[userID] = set
	}
	set[jti] = struct{}{}
	return nil
}

func (r *RefreshTokens) Consume(_ context.Context, userID, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jtis[userID][jti]; !ok {
		return store.ErrRefreshInvalid
	}
	delete(r.jtis[userID], jti)
	return nil
}

func (r *RefreshTokens) RevokeAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jtis, userID)
	return nil
}
