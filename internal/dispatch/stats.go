package dispatch

import (
	"context"
	"fmt"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/store"
)

type DashboardStats struct {
	UsersByRole        map[domain.Role]int       `json:"users_by_role"`
	TotalUsers         int                       `json:"total_users"`
	OnlineDrivers      int                       `json:"online_drivers"`
	RidesByStatus      map[domain.RideStatus]int `json:"rides_by_status"`
	TotalRides         int                       `json:"total_rides"`
	GrossFares         float64                   `json:"gross_fares"`
	DriverPayouts      float64                   `json:"driver_payouts"`
	PlatformCommission float64                   `json:"platform_commission"`
	PendingWithdrawals float64                   `json:"pending_withdrawals"`
}

// GetDashboardStats aggregates the admin dashboard figures from the current store contents.
func (e *Engine) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	repos := e.store.Repos()
	stats := DashboardStats{
		UsersByRole:   make(map[domain.Role]int),
		RidesByStatus: make(map[domain.RideStatus]int),
	}

	users, err := repos.Users.List(ctx, store.UserFilter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		stats.UsersByRole[u.Role]++
		if u.IsDriver() && u.IsOnline && !u.Blocked() {
			stats.OnlineDrivers++
		}
	}
	stats.TotalUsers = len(users)

	rides, err := repos.Rides.List(ctx, store.RideFilter{})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list rides: %w", err)
	}
	for _, r := range rides {
		stats.RidesByStatus[r.Status]++
		if r.Status == domain.RideCompleted {
			stats.GrossFares += r.Price
		}
	}
	stats.TotalRides = len(rides)

	earnings, err := repos.Transactions.List(ctx, store.TransactionFilter{Type: domain.TxRideEarning})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list earnings: %w", err)
	}
	for _, t := range earnings {
		stats.DriverPayouts += t.Amount
	}
	pending, err := repos.Transactions.List(ctx, store.TransactionFilter{
		Type:   domain.TxWithdrawal,
		Status: domain.TxPending,
	})
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list withdrawals: %w", err)
	}
	for _, t := range pending {
		stats.PendingWithdrawals -= t.Amount
	}

	stats.GrossFares = domain.RoundMoney(stats.GrossFares)
	stats.DriverPayouts = domain.RoundMoney(stats.DriverPayouts)
	stats.PlatformCommission = domain.RoundMoney(stats.GrossFares - stats.DriverPayouts)
	stats.PendingWithdrawals = domain.RoundMoney(stats.PendingWithdrawals)
	return stats, nil
}
