package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okadago/backend/internal/domain"
)

const (
	keyPricing     = "settings:pricing"
	keyMaintenance = "settings:maintenance"
	keyBlockedIPs  = "settings:blocked_ips"
)

// Redis stores settings in Redis so every API instance sees the same values.
// Unset keys fall back to the defaults given at construction.
type Redis struct {
	rdb      *redis.Client
	defaults domain.PricingTable
}

func NewRedis(rdb *redis.Client, defaults domain.PricingTable) *Redis {
	return &Redis{rdb: rdb, defaults: defaults}
}

func (s *Redis) Pricing(ctx context.Context) (domain.PricingTable, error) {
	raw, err := s.rdb.Get(ctx, keyPricing).Bytes()
	if errors.Is(err, redis.Nil) {
		return clonePricing(s.defaults), nil
	}
	if err != nil {
		return domain.PricingTable{}, fmt.Errorf("get pricing: %w", err)
	}
	return ParsePricing(raw)
}

func (s *Redis) MaintenanceMode(ctx context.Context) (bool, error) {
	v, err := s.rdb.Get(ctx, keyMaintenance).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get maintenance flag: %w", err)
	}
	return v == "1", nil
}

func (s *Redis) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, keyBlockedIPs, ip).Result()
	if err != nil {
		return false, fmt.Errorf("check blocked ip: %w", err)
	}
	return ok, nil
}

func (s *Redis) SetPricing(ctx context.Context, p domain.PricingTable) error {
	if err := ValidatePricing(p); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPricing, raw, 0).Err()
}

func (s *Redis) SetMaintenance(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.rdb.Set(ctx, keyMaintenance, v, 0).Err()
}

func (s *Redis) BlockIP(ctx context.Context, ip string) error {
	return s.rdb.SAdd(ctx, keyBlockedIPs, ip).Err()
}

func (s *Redis) UnblockIP(ctx context.Context, ip string) error {
	return s.rdb.SRem(ctx, keyBlockedIPs, ip).Err()
}
