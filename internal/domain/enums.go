package domain

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDriver    Role = "DRIVER"
	RolePassenger Role = "PASSENGER"
	RoleStaff     Role = "STAFF"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDriver, RolePassenger, RoleStaff:
		return true
	}
	return false
}

// Privileged reports whether the role may act on rides it is not a party to.
func (r Role) Privileged() bool { return r == RoleAdmin || r == RoleStaff }

type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusBanned    AccountStatus = "BANNED"
	StatusSuspended AccountStatus = "SUSPENDED"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusBanned, StatusSuspended:
		return true
	}
	return false
}

type VehicleType string

const (
	VehicleOkada   VehicleType = "OKADA"
	VehicleKeke    VehicleType = "KEKE"
	VehicleMinibus VehicleType = "MINIBUS"
	VehicleTruck   VehicleType = "TRUCK"
)

// vehicleCapacityKg is the fixed payload table used when a driver is recruited.
var vehicleCapacityKg = map[VehicleType]float64{
	VehicleOkada:   150,
	VehicleKeke:    400,
	VehicleMinibus: 1000,
	VehicleTruck:   3000,
}

func (v VehicleType) Valid() bool {
	_, ok := vehicleCapacityKg[v]
	return ok
}

// CapacityKg returns the payload capacity for the vehicle type, or 0 when unknown.
func (v VehicleType) CapacityKg() float64 { return vehicleCapacityKg[v] }

type LoadStatus string

const (
	LoadEmpty    LoadStatus = "EMPTY"
	LoadHalf     LoadStatus = "HALF_LOAD"
	LoadFull     LoadStatus = "FULL_LOAD"
	LoadOverload LoadStatus = "OVERLOAD"
)

// LoadStatusFor classifies a load against a capacity.
func LoadStatusFor(loadKg, capacityKg float64) LoadStatus {
	switch {
	case loadKg <= 0:
		return LoadEmpty
	case loadKg > capacityKg:
		return LoadOverload
	case loadKg > capacityKg/2:
		return LoadFull
	default:
		return LoadHalf
	}
}

type RideType string

const (
	RideTypeRide      RideType = "RIDE"
	RideTypeLogistics RideType = "LOGISTICS"
)

func (t RideType) Valid() bool { return t == RideTypeRide || t == RideTypeLogistics }

type RideStatus string

const (
	RidePending    RideStatus = "PENDING"
	RideAccepted   RideStatus = "ACCEPTED"
	RideInProgress RideStatus = "IN_PROGRESS"
	RideCompleted  RideStatus = "COMPLETED"
	RideCancelled  RideStatus = "CANCELLED"
)

func (s RideStatus) Valid() bool {
	switch s {
	case RidePending, RideAccepted, RideInProgress, RideCompleted, RideCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s RideStatus) Terminal() bool { return s == RideCompleted || s == RideCancelled }

// Active reports whether a driver is committed to the ride.
func (s RideStatus) Active() bool { return s == RideAccepted || s == RideInProgress }

// CanTransition is the ride state machine.
func CanTransition(from, to RideStatus) bool {
	switch from {
	case RidePending:
		return to == RideAccepted || to == RideCancelled
	case RideAccepted:
		return to == RideInProgress || to == RideCancelled
	case RideInProgress:
		return to == RideCompleted || to == RideCancelled
	}
	return false
}

type TransactionType string

const (
	TxRidePayment TransactionType = "RIDE_PAYMENT"
	TxRideEarning TransactionType = "RIDE_EARNING"
	TxWithdrawal  TransactionType = "WITHDRAWAL"
	TxDeposit     TransactionType = "DEPOSIT"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
)
