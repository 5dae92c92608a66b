package domain

import (
	"slices"
	"time"
)

// Ride is a passenger ride or a parcel delivery request.
type Ride struct {
	ID          string `json:"id"`
	PassengerID string `json:"passenger_id"`
	DriverID    string `json:"driver_id,omitempty"`

	Type        RideType    `json:"type"`
	VehicleType VehicleType `json:"vehicle_type"`

	PickupAddress  string  `json:"pickup_address"`
	DropoffAddress string  `json:"dropoff_address"`
	DistanceKm     float64 `json:"distance_km"`

	Price             float64 `json:"price"`
	EstimatedWeightKg float64 `json:"estimated_weight_kg"`

	Status     RideStatus `json:"status"`
	RejectedBy []string   `json:"rejected_by,omitempty"`

	ParcelDescription string `json:"parcel_description,omitempty"`
	ParcelWeight      string `json:"parcel_weight,omitempty"`
	ReceiverPhone     string `json:"receiver_phone,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// RejectedByDriver reports whether the driver has declined the ride.
func (r Ride) RejectedByDriver(driverID string) bool {
	return slices.Contains(r.RejectedBy, driverID)
}

// Clone returns a copy that shares no mutable state with r.
func (r Ride) Clone() Ride {
	r.RejectedBy = slices.Clone(r.RejectedBy)
	if r.EndTime != nil {
		t := *r.EndTime
		r.EndTime = &t
	}
	return r
}

// Transaction is a wallet movement.
type Transaction struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	RideID    string            `json:"ride_id,omitempty"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	Amount    float64           `json:"amount"`
	CreatedAt time.Time         `json:"created_at"`
}

// ActivityRecord is one entry of the audit trail.
type ActivityRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
}
