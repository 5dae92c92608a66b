package domain

import "time"

// User is an account record. Driver-only fields are zero for other roles.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	NIN   string `json:"nin,omitempty"`
	Role  Role   `json:"role"`

	PasswordHash string `json:"-"`

	WalletBalance float64 `json:"wallet_balance"`

	Status           AccountStatus `json:"status"`
	SuspensionReason string        `json:"suspension_reason,omitempty"`

	VehicleType       VehicleType `json:"vehicle_type,omitempty"`
	LicensePlate      string      `json:"license_plate,omitempty"`
	IsOnline          bool        `json:"is_online"`
	Rating            float64     `json:"rating,omitempty"`
	TotalTrips        int         `json:"total_trips"`
	VehicleCapacityKg float64     `json:"vehicle_capacity_kg,omitempty"`
	CurrentLoadKg     float64     `json:"current_load_kg"`
	LoadStatus        LoadStatus  `json:"load_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Blocked reports whether the account may not issue commands.
func (u User) Blocked() bool { return u.Status == StatusBanned || u.Status == StatusSuspended }

func (u User) IsDriver() bool { return u.Role == RoleDriver }

// SetLoad sets the carried weight and reclassifies it against the vehicle capacity.
func (u *User) SetLoad(kg float64) {
	if kg <= 0 {
		u.CurrentLoadKg = 0
		u.LoadStatus = LoadEmpty
		return
	}
	u.CurrentLoadKg = kg
	u.LoadStatus = LoadStatusFor(kg, u.VehicleCapacityKg)
}
