package domain

// VehiclePricing is the distance tariff for one vehicle type.
type VehiclePricing struct {
	Base  float64 `json:"base"`
	PerKm float64 `json:"per_km"`
}

// LogisticsPricing is the parcel tariff.
type LogisticsPricing struct {
	BaseFare             float64 `json:"base_fare"`
	PerKg                float64 `json:"per_kg"`
	PerKm                float64 `json:"per_km"`
	InterstateMultiplier float64 `json:"interstate_multiplier"`
}

type PricingTable struct {
	Vehicles  map[VehicleType]VehiclePricing `json:"vehicles"`
	Logistics LogisticsPricing               `json:"logistics"`
}

// DefaultPricing is used when no pricing has been configured.
func DefaultPricing() PricingTable {
	return PricingTable{
		Vehicles: map[VehicleType]VehiclePricing{
			VehicleOkada:   {Base: 200, PerKm: 50},
			VehicleKeke:    {Base: 300, PerKm: 70},
			VehicleMinibus: {Base: 500, PerKm: 100},
			VehicleTruck:   {Base: 2000, PerKm: 300},
		},
		Logistics: LogisticsPricing{
			BaseFare:             1000,
			PerKg:                50,
			PerKm:                100,
			InterstateMultiplier: 1.5,
		},
	}
}
