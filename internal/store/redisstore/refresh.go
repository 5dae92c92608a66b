// Package redisstore keeps short-lived auth state in Redis.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okadago/backend/internal/store"
)

// RefreshStore tracks issued refresh-token JTIs. A JTI can be consumed once, which makes
// refresh tokens single-use. Each user also has a set of live JTIs so logout can revoke all.
type RefreshStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRefreshStore(rdb *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{rdb: rdb, ttl: ttl}
}

func (s *RefreshStore) key(userID, jti string) string {
	return "refresh:" + userID + ":" + jti
}

func (s *RefreshStore) setKey(userID string) string {
	return "refresh_set:" + userID
}

func (s *RefreshStore) Put(ctx context.Context, userID, jti string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(userID, jti), "1", s.ttl)
	pipe.SAdd(ctx, s.setKey(userID), jti)
	pipe.Expire(ctx, s.setKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RefreshStore) Consume(ctx context.Context, userID, jti string) error {
	n, err := s.rdb.Del(ctx, s.key(userID, jti)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrRefreshInvalid
	}
	s.rdb.SRem(ctx, s.setKey(userID), jti)
	return nil
}

func (s *RefreshStore) RevokeAll(ctx context.Context, userID string) error {
	jtis, err := s.rdb.SMembers(ctx, s.setKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, s.key(userID, jti))
	}
	keys = append(keys, s.setKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}
