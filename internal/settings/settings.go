// Package settings serves the operator-controlled configuration read by the dispatch core:
// the pricing table, the maintenance flag and the blocked IP list.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okadago/backend/internal/domain"
)

// Provider is the read side consumed by the fare calculator, the engine and login.
type Provider interface {
	Pricing(ctx context.Context) (domain.PricingTable, error)
	MaintenanceMode(ctx context.Context) (bool, error)
	IsIPBlocked(ctx context.Context, ip string) (bool, error)
}

// Admin is the write side behind the admin settings endpoints.
type Admin interface {
	Provider
	SetPricing(ctx context.Context, p domain.PricingTable) error
	SetMaintenance(ctx context.Context, on bool) error
	BlockIP(ctx context.Context, ip string) error
	UnblockIP(ctx context.Context, ip string) error
}

// ParsePricing decodes a pricing table, as stored in Redis or given in PRICING_JSON.
func ParsePricing(raw []byte) (domain.PricingTable, error) {
	var p domain.PricingTable
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PricingTable{}, fmt.Errorf("decode pricing: %w", err)
	}
	if err := ValidatePricing(p); err != nil {
		return domain.PricingTable{}, err
	}
	return p, nil
}

func ValidatePricing(p domain.PricingTable) error {
	if len(p.Vehicles) == 0 {
		return fmt.Errorf("pricing has no vehicle entries")
	}
	for v, vp := range p.Vehicles {
		if !v.Valid() {
			return fmt.Errorf("pricing for unknown vehicle type %q", v)
		}
		if vp.Base < 0 || vp.PerKm < 0 {
			return fmt.Errorf("pricing for %s must not be negative", v)
		}
	}
	l := p.Logistics
	if l.BaseFare < 0 || l.PerKg < 0 || l.PerKm < 0 || l.InterstateMultiplier < 0 {
		return fmt.Errorf("logistics pricing must not be negative")
	}
	return nil
}

// Static keeps settings in process memory. It backs STORAGE=memory deployments and tests.
type Static struct {
	mu          sync.RWMutex
	pricing     domain.PricingTable
	maintenance bool
	blocked     map[string]struct{}
}

func NewStatic(p domain.PricingTable) *Static {
	return &Static{pricing: p, blocked: make(map[string]struct{})}
}

func (s *Static) Pricing(context.Context) (domain.PricingTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePricing(s.pricing), nil
}

func (s *Static) MaintenanceMode(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance, nil
}

func (s *Static) IsIPBlocked(_ context.Context, ip string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocked[ip]
	return ok, nil
}

func (s *Static) SetPricing(_ context.Context, p domain.PricingTable) error {
	if err := ValidatePricing(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricing = clonePricing(p)
	return nil
}

func (s *Static) SetMaintenance(_ context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = on
	return nil
}

func (s *Static) BlockIP(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[ip] = struct{}{}
	return nil
}

func (s *Static) UnblockIP(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, ip)
	return nil
}

func clonePricing(p domain.PricingTable) domain.PricingTable {
	out := p
	out.Vehicles = make(map[domain.VehicleType]domain.VehiclePricing, len(p.Vehicles))
	for k, v := range p.Vehicles {
		out.Vehicles[k] = v
	}
	return out
}
