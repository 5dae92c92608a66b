package domain

import "math"

// RoundMoney rounds a naira amount to kobo.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
