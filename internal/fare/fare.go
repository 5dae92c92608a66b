// Package fare prices rides from the operator's pricing table.
package fare

import (
	"context"
	"fmt"
	"math"

	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/settings"
)

// eps absorbs float noise such as 200+50*0.1 landing just above an integer.
const eps = 1e-9

type Calculator struct {
	settings settings.Provider
}

func NewCalculator(p settings.Provider) *Calculator {
	return &Calculator{settings: p}
}

// CalculateFare returns ceil(base + perKm*distance) for the vehicle type. A vehicle type with
// no pricing entry is a configuration error; no default price is substituted.
func (c *Calculator) CalculateFare(ctx context.Context, vt domain.VehicleType, distanceKm float64) (float64, error) {
	if distanceKm < 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0, apperr.Validation("distance must be a non-negative number").With("distance_km", distanceKm)
	}
	table, err := c.settings.Pricing(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pricing: %w", err)
	}
	vp, ok := table.Vehicles[vt]
	if !ok {
		return 0, apperr.Configuration("no pricing configured for vehicle type " + string(vt)).
			With("vehicle_type", string(vt))
	}
	return ceil(vp.Base + vp.PerKm*distanceKm), nil
}

// QuoteLogistics prices a parcel: ceil((base + perKg*weight + perKm*distance) * multiplier),
// where the multiplier applies to interstate deliveries only.
func (c *Calculator) QuoteLogistics(ctx context.Context, weightKg, distanceKm float64, interstate bool) (float64, error) {
	if weightKg < 0 || distanceKm < 0 {
		return 0, apperr.Validation("weight and distance must not be negative")
	}
	table, err := c.settings.Pricing(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pricing: %w", err)
	}
	l := table.Logistics
	total := l.BaseFare + l.PerKg*weightKg + l.PerKm*distanceKm
	if interstate && l.InterstateMultiplier > 0 {
		total *= l.InterstateMultiplier
	}
	return ceil(total), nil
}

func ceil(v float64) float64 {
	return math.Ceil(v - eps)
}
